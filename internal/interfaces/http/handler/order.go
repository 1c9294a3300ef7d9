package handler

import (
	"context"
	"fmt"
	"net/http"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// OrderService is the part of the order engine the admin API uses
type OrderService interface {
	Get(ctx context.Context, orderID string, actorID int64) (*fulfillment.SubOrder, error)
	Advance(ctx context.Context, orderID string, target fulfillment.Status, actorID int64) (*appfulfillment.AdvanceResult, error)
	ExportCSV(ctx context.Context, actorID int64) (notification.Document, error)
	Summary(ctx context.Context, baseOrderID string, locale fulfillment.Locale, actorID int64) (string, error)
}

// OrderHandler serves the admin REST API. Every call acts on behalf of the
// actor named by the bearer token.
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) actor(c *gin.Context) (int64, bool) {
	actorID, ok := middleware.GetActorID(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return actorID, ok
}

// GetByID godoc
// GET /api/v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewOrderResponse(order))
}

// Transition godoc
// POST /api/v1/orders/:id/transitions
func (h *OrderHandler) Transition(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if middleware.IsBodyTooLarge(err) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body is too large")
			return
		}
		h.BadRequest(c, "target is required")
		return
	}

	result, err := h.orders.Advance(c.Request.Context(), c.Param("id"), fulfillment.Status(req.Target), actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.TransitionResponse{
		Order:    dto.NewOrderResponse(result.Order),
		Changed:  result.Changed,
		Warnings: result.Warnings,
	})
}

// Export godoc
// GET /api/v1/orders/export
func (h *OrderHandler) Export(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	doc, err := h.orders.ExportCSV(c.Request.Context(), actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", doc.Data)
}

// Summary godoc
// GET /api/v1/base-orders/:id/summary?locale=ru|uz
func (h *OrderHandler) Summary(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	locale := fulfillment.ParseLocale(c.Query("locale"))
	baseID := c.Param("id")
	text, err := h.orders.Summary(c.Request.Context(), baseID, locale, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.SummaryResponse{BaseOrderID: baseID, Locale: string(locale), Text: text})
}
