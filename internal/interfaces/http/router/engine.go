package router

import (
	"net/http"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsExporter instruments requests and serves the scrape endpoint
type MetricsExporter interface {
	GinMiddleware() gin.HandlerFunc
	Handler() http.Handler
}

// Config controls the middleware chain
type Config struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	WebhookSecret  string
	CORS           middleware.CORSConfig
}

// Handlers are the endpoints mounted on the engine. A nil handler leaves
// its routes out.
type Handlers struct {
	System  *handler.SystemHandler
	Orders  *handler.OrderHandler
	Webhook *handler.WebhookHandler
}

// NewEngine builds the gin engine with the full middleware chain and every
// route. auth guards the admin API; metrics may be nil.
func NewEngine(cfg Config, h Handlers, auth gin.HandlerFunc, metrics MetricsExporter, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	if metrics != nil {
		engine.Use(metrics.GinMiddleware())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}
	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if h.Webhook != nil {
		engine.POST("/webhook/:secret", middleware.WebhookSecret(cfg.WebhookSecret), h.Webhook.Receive)
	}

	api := NewAPI("v1")
	if h.Orders != nil {
		api.Mount(OrderResources(h.Orders, auth)...)
	}
	api.Setup(engine)
	if routes := api.Describe(); len(routes) > 0 {
		log.Info("Admin API mounted", zap.Strings("routes", routes))
	}

	return engine
}

// OrderResources is the admin API over sub-orders and base orders. Every
// route requires a staff token.
func OrderResources(h *handler.OrderHandler, auth gin.HandlerFunc) []*Resource {
	guard := []gin.HandlerFunc{auth, middleware.TracingAttributeInjector()}

	orders := NewResource("orders", "/orders", guard...).
		GET("/export", "Export recent sub-orders as CSV", h.Export).
		GET("/:id", "Get a sub-order with its audit history", h.GetByID).
		POST("/:id/transitions", "Advance a sub-order to the next stage", h.Transition)

	baseOrders := NewResource("base-orders", "/base-orders", guard...).
		GET("/:id/summary", "Render the customer status summary of a checkout", h.Summary)

	return []*Resource{orders, baseOrders}
}
