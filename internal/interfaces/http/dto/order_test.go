package dto

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func sampleOrder(status fulfillment.Status) *fulfillment.SubOrder {
	return &fulfillment.SubOrder{
		ID:          "260315103000_12345_cleaning",
		BaseOrderID: "260315103000_12345",
		UserID:      12345,
		ClientName:  "Иван Петров",
		Category:    fulfillment.CategoryCleaning,
		Items: []fulfillment.OrderItem{
			{ID: 7, Name: "Порошок", Price: decimal.RequireFromString("12500.5"), Qty: 3},
		},
		Total:     decimal.RequireFromString("37501.5"),
		Status:    status,
		CreatedAt: testNow,
	}
}

func TestNewOrderResponse(t *testing.T) {
	o := sampleOrder(fulfillment.StatusApproved)
	o.History = []fulfillment.AuditEntry{
		{Stage: fulfillment.StatusApproved, ActorID: 900, ActorLabel: "@sales", At: testNow.Add(time.Minute)},
	}

	resp := NewOrderResponse(o)

	assert.Equal(t, o.ID, resp.ID)
	assert.Equal(t, "cleaning", resp.Category)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, "37501.50", resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "12500.50", resp.Items[0].Price)
	assert.Equal(t, "37501.50", resp.Items[0].Subtotal)
	require.Len(t, resp.History, 1)
	assert.Equal(t, "@sales", resp.History[0].ActorLabel)
	assert.Equal(t, []string{"production_received"}, resp.NextStages)
}

func TestNewOrderResponse_NextStages(t *testing.T) {
	tests := []struct {
		status fulfillment.Status
		want   []string
	}{
		{fulfillment.StatusPending, []string{"approved", "rejected"}},
		{fulfillment.StatusProductionStarted, []string{"sent_to_warehouse"}},
		{fulfillment.StatusWarehouseReceived, []string{}},
		{fulfillment.StatusRejected, []string{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, NewOrderResponse(sampleOrder(tt.status)).NextStages)
		})
	}
}

func TestNewOrderResponse_EmptyCollectionsAreNotNull(t *testing.T) {
	o := sampleOrder(fulfillment.StatusPending)
	o.Items = nil

	resp := NewOrderResponse(o)

	assert.NotNil(t, resp.Items)
	assert.NotNil(t, resp.History)
}
