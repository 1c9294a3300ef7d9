package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// setupOrderRouter mounts the order API behind a stub that authenticates
// every request as actorID. A zero actorID leaves the request anonymous.
func setupOrderRouter(orders *MockOrders, actorID int64) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if actorID != 0 {
			c.Set(middleware.JWTActorIDKey, actorID)
		}
		c.Next()
	})
	h := NewOrderHandler(orders)
	r.GET("/api/v1/orders/export", h.Export)
	r.GET("/api/v1/orders/:id", h.GetByID)
	r.POST("/api/v1/orders/:id/transitions", h.Transition)
	r.GET("/api/v1/base-orders/:id/summary", h.Summary)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestOrderHandler_GetByID(t *testing.T) {
	t.Run("returns the order", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Get", mock.Anything, "X_1", salesID).Return(pendingOrder(), nil)

		w := serve(setupOrderRouter(orders, salesID), http.MethodGet, "/api/v1/orders/X_1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Success bool              `json:"success"`
			Data    dto.OrderResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "X_1", resp.Data.ID)
		assert.Equal(t, []string{"approved", "rejected"}, resp.Data.NextStages)
		orders.AssertExpectations(t)
	})

	t.Run("customers are forbidden", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Get", mock.Anything, "X_1", customerID).
			Return(nil, shared.NewAuthorizationError("Only department members may view orders"))

		w := serve(setupOrderRouter(orders, customerID), http.MethodGet, "/api/v1/orders/X_1", "")

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeForbidden)
	})

	t.Run("anonymous requests are unauthorized", func(t *testing.T) {
		orders := new(MockOrders)

		w := serve(setupOrderRouter(orders, 0), http.MethodGet, "/api/v1/orders/X_1", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Transition(t *testing.T) {
	t.Run("applies the transition", func(t *testing.T) {
		orders := new(MockOrders)
		order := pendingOrder()
		order.Status = fulfillment.StatusApproved
		orders.On("Advance", mock.Anything, "X_1", fulfillment.StatusApproved, salesID).
			Return(&appfulfillment.AdvanceResult{Order: order, Changed: true, Warnings: []string{"client_summary"}}, nil)

		w := serve(setupOrderRouter(orders, salesID), http.MethodPost, "/api/v1/orders/X_1/transitions", `{"target":"approved"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data dto.TransitionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.Changed)
		assert.Equal(t, "approved", resp.Data.Order.Status)
		assert.Equal(t, []string{"client_summary"}, resp.Data.Warnings)
	})

	t.Run("missing target", func(t *testing.T) {
		orders := new(MockOrders)

		w := serve(setupOrderRouter(orders, salesID), http.MethodPost, "/api/v1/orders/X_1/transitions", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orders.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized body", func(t *testing.T) {
		orders := new(MockOrders)
		r := gin.New()
		r.Use(func(c *gin.Context) { c.Set(middleware.JWTActorIDKey, salesID) })
		r.POST("/api/v1/orders/:id/transitions", middleware.BodyLimit(32), NewOrderHandler(orders).Transition)

		body := `{"target":"approved","note":"` + strings.Repeat("x", 64) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/X_1/transitions", io.NopCloser(strings.NewReader(body)))
		req.ContentLength = -1
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
		orders.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong source state", func(t *testing.T) {
		orders := new(MockOrders)
		orders.On("Advance", mock.Anything, "X_1", fulfillment.StatusWarehouseReceived, warehouseID).
			Return(nil, shared.NewInvalidStateError("Order X_1 is approved"))

		w := serve(setupOrderRouter(orders, warehouseID), http.MethodPost, "/api/v1/orders/X_1/transitions", `{"target":"warehouse_received"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidState)
	})
}

func TestOrderHandler_Export(t *testing.T) {
	orders := new(MockOrders)
	orders.On("ExportCSV", mock.Anything, superAdminID).Return(notification.Document{
		Filename: "orders_export_20240315_103000.csv",
		Data:     []byte("\xEF\xBB\xBForder_id;client_name\n"),
	}, nil)

	w := serve(setupOrderRouter(orders, superAdminID), http.MethodGet, "/api/v1/orders/export", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "orders_export_20240315_103000.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "\xEF\xBB\xBF"))
}

func TestOrderHandler_Summary(t *testing.T) {
	orders := new(MockOrders)
	orders.On("Summary", mock.Anything, "X", fulfillment.LocaleUZ, salesID).Return("📦 Buyurtma", nil)

	w := serve(setupOrderRouter(orders, salesID), http.MethodGet, "/api/v1/base-orders/X/summary?locale=uz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.SummaryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "uz", resp.Data.Locale)
	assert.Equal(t, "📦 Buyurtma", resp.Data.Text)
}
