package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const auditTimeLayout = "02.01.2006 15:04"

// Actor identifies who applied a transition
type Actor struct {
	ID    int64
	Label string
}

// AuditEntry is one recorded transition, rendered fresh on every card
type AuditEntry struct {
	Stage      Status
	ActorID    int64
	ActorLabel string
	At         time.Time
}

// Render formats the entry as a two-line admin card fragment
func (e AuditEntry) Render() string {
	return fmt.Sprintf("%s: %s\n   Время: %s", e.Stage.StageLabel(), e.ActorLabel, e.At.Format(auditTimeLayout))
}

// SubOrder is the unit of work and of state: one category of one checkout
type SubOrder struct {
	shared.BaseAggregateRoot
	ID            string
	BaseOrderID   string
	UserID        int64
	ClientName    string
	Category      Category
	Items         []OrderItem
	Total         decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	DraftDocument []byte
	FinalDocument []byte
	DocumentURL   string

	ApprovedBy           *int64
	RejectedBy           *int64
	ProductionReceivedBy *int64
	ProductionStartedBy  *int64
	SentToWarehouseBy    *int64
	WarehouseReceivedBy  *int64

	History []AuditEntry
}

// NewSubOrder creates a PENDING sub-order. All items must belong to
// category when one is given.
func NewSubOrder(id, baseID string, userID int64, clientName string, category Category, items []OrderItem, now time.Time) (*SubOrder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("Sub-order id cannot be empty")
	}
	if baseID == "" {
		baseID = id
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("Sub-order must contain at least one item")
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, shared.NewValidationError(fmt.Sprintf("Item %d has non-positive quantity", it.ID))
		}
		if category != CategoryNone && it.Category != category {
			return nil, shared.NewValidationError(fmt.Sprintf("Item %d does not belong to category %s", it.ID, category))
		}
	}

	o := &SubOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ID:                id,
		BaseOrderID:       baseID,
		UserID:            userID,
		ClientName:        clientName,
		Category:          category,
		Items:             append([]OrderItem(nil), items...),
		Total:             SumItems(items),
		Status:            StatusPending,
		CreatedAt:         now,
		History:           make([]AuditEntry, 0),
	}
	o.AddDomainEvent(NewSubOrderCreatedEvent(o))
	return o, nil
}

// Advance applies a transition. It returns false without error when the
// order is already in target, so duplicate taps are harmless. Any edge not
// in the state machine is rejected and leaves the order untouched.
func (o *SubOrder) Advance(target Status, actor Actor, now time.Time) (bool, error) {
	if !target.IsValid() {
		return false, shared.NewValidationError(fmt.Sprintf("Unknown status %q", target))
	}
	if o.Status == target {
		return false, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return false, shared.NewInvalidStateError(
			fmt.Sprintf("Cannot move order %s from %s to %s", o.ID, o.Status, target))
	}

	from := o.Status
	actorID := actor.ID
	switch target {
	case StatusApproved:
		o.ApprovedBy = &actorID
	case StatusRejected:
		o.RejectedBy = &actorID
	case StatusProductionReceived:
		o.ProductionReceivedBy = &actorID
	case StatusProductionStarted:
		o.ProductionStartedBy = &actorID
	case StatusSentToWarehouse:
		o.SentToWarehouseBy = &actorID
	case StatusWarehouseReceived:
		o.WarehouseReceivedBy = &actorID
	}
	o.Status = target
	o.History = append(o.History, AuditEntry{
		Stage:      target,
		ActorID:    actor.ID,
		ActorLabel: actor.Label,
		At:         now,
	})
	o.AddDomainEvent(NewSubOrderAdvancedEvent(o, from, actor.ID, now))
	return true, nil
}

// ActorFor returns who applied the given stage, if anyone
func (o *SubOrder) ActorFor(stage Status) *int64 {
	switch stage {
	case StatusApproved:
		return o.ApprovedBy
	case StatusRejected:
		return o.RejectedBy
	case StatusProductionReceived:
		return o.ProductionReceivedBy
	case StatusProductionStarted:
		return o.ProductionStartedBy
	case StatusSentToWarehouse:
		return o.SentToWarehouseBy
	case StatusWarehouseReceived:
		return o.WarehouseReceivedBy
	default:
		return nil
	}
}

// Document returns the finalized document, falling back to the draft
func (o *SubOrder) Document() []byte {
	if len(o.FinalDocument) > 0 {
		return o.FinalDocument
	}
	return o.DraftDocument
}

// ItemCount returns the number of item lines
func (o *SubOrder) ItemCount() int {
	return len(o.Items)
}

// AuditTrail renders the history, oldest first
func (o *SubOrder) AuditTrail() string {
	lines := make([]string, 0, len(o.History))
	for _, e := range o.History {
		lines = append(lines, e.Render())
	}
	return strings.Join(lines, "\n")
}
