package dto

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// OrderItemResponse is one line of a sub-order
type OrderItemResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Qty      int64  `json:"qty"`
	Subtotal string `json:"subtotal"`
}

// AuditEntryResponse is one recorded transition
type AuditEntryResponse struct {
	Stage      string    `json:"stage"`
	ActorID    int64     `json:"actor_id"`
	ActorLabel string    `json:"actor_label"`
	At         time.Time `json:"at"`
}

// OrderResponse is the API view of a sub-order
type OrderResponse struct {
	ID          string               `json:"id"`
	BaseOrderID string               `json:"base_order_id"`
	UserID      int64                `json:"user_id"`
	ClientName  string               `json:"client_name"`
	Category    string               `json:"category"`
	Status      string               `json:"status"`
	Total       string               `json:"total"`
	DocumentURL string               `json:"document_url,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Items       []OrderItemResponse  `json:"items"`
	History     []AuditEntryResponse `json:"history"`
	NextStages  []string             `json:"next_stages"`
}

// NewOrderResponse converts a sub-order to its API view
func NewOrderResponse(o *fulfillment.SubOrder) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		BaseOrderID: o.BaseOrderID,
		UserID:      o.UserID,
		ClientName:  o.ClientName,
		Category:    string(o.Category),
		Status:      string(o.Status),
		Total:       o.Total.StringFixed(2),
		DocumentURL: o.DocumentURL,
		CreatedAt:   o.CreatedAt,
		Items:       make([]OrderItemResponse, 0, len(o.Items)),
		History:     make([]AuditEntryResponse, 0, len(o.History)),
		NextStages:  []string{},
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price.StringFixed(2),
			Qty:      it.Qty,
			Subtotal: it.Subtotal().StringFixed(2),
		})
	}
	for _, h := range o.History {
		resp.History = append(resp.History, AuditEntryResponse{
			Stage:      string(h.Stage),
			ActorID:    h.ActorID,
			ActorLabel: h.ActorLabel,
			At:         h.At,
		})
	}
	if o.Status == fulfillment.StatusPending {
		resp.NextStages = append(resp.NextStages, string(fulfillment.StatusApproved), string(fulfillment.StatusRejected))
	} else if next, ok := o.Status.Next(); ok {
		resp.NextStages = append(resp.NextStages, string(next))
	}
	return resp
}

// TransitionRequest asks to move a sub-order to target
type TransitionRequest struct {
	Target string `json:"target" binding:"required"`
}

// TransitionResponse reports the outcome of a transition request
type TransitionResponse struct {
	Order    OrderResponse `json:"order"`
	Changed  bool          `json:"changed"`
	Warnings []string      `json:"warnings,omitempty"`
}

// SummaryResponse is the rendered client summary of a base order
type SummaryResponse struct {
	BaseOrderID string `json:"base_order_id"`
	Locale      string `json:"locale"`
	Text        string `json:"text"`
}
