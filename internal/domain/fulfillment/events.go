package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type and event names
const (
	AggregateTypeSubOrder = "SubOrder"

	EventTypeSubOrderCreated  = "fulfillment.suborder.created"
	EventTypeSubOrderAdvanced = "fulfillment.suborder.advanced"
)

// SubOrderCreatedEvent is raised when checkout creates a sub-order
type SubOrderCreatedEvent struct {
	shared.BaseDomainEvent
	SubOrderID  string          `json:"sub_order_id"`
	BaseOrderID string          `json:"base_order_id"`
	UserID      int64           `json:"user_id"`
	Category    Category        `json:"category"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
}

// NewSubOrderCreatedEvent builds the creation event
func NewSubOrderCreatedEvent(o *SubOrder) *SubOrderCreatedEvent {
	return &SubOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubOrderCreated, AggregateTypeSubOrder, o.ID, o.CreatedAt),
		SubOrderID:      o.ID,
		BaseOrderID:     o.BaseOrderID,
		UserID:          o.UserID,
		Category:        o.Category,
		Total:           o.Total,
		ItemCount:       len(o.Items),
	}
}

// SubOrderAdvancedEvent is raised for every applied transition
type SubOrderAdvancedEvent struct {
	shared.BaseDomainEvent
	SubOrderID  string   `json:"sub_order_id"`
	BaseOrderID string   `json:"base_order_id"`
	UserID      int64    `json:"user_id"`
	Category    Category `json:"category"`
	From        Status   `json:"from"`
	To          Status   `json:"to"`
	ActorID     int64    `json:"actor_id"`
}

// NewSubOrderAdvancedEvent builds the transition event
func NewSubOrderAdvancedEvent(o *SubOrder, from Status, actorID int64, at time.Time) *SubOrderAdvancedEvent {
	return &SubOrderAdvancedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubOrderAdvanced, AggregateTypeSubOrder, o.ID, at),
		SubOrderID:      o.ID,
		BaseOrderID:     o.BaseOrderID,
		UserID:          o.UserID,
		Category:        o.Category,
		From:            from,
		To:              o.Status,
		ActorID:         actorID,
	}
}
