package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxTransitionAttempts bounds the reload-and-retry loop on version conflicts
const maxTransitionAttempts = 3

// Downstream steps that may fail after a transition was committed
const (
	WarningEvents           = "events"
	WarningDocument         = "document"
	WarningProductionNotice = "production_notice"
	WarningCategoryReady    = "category_ready"
	WarningClientSummary    = "client_summary"
)

// Dependencies wires the engine to its collaborators. Events may be nil.
type Dependencies struct {
	Orders     fulfillment.SubOrderRepository
	Users      fulfillment.UserRepository
	Roster     *fulfillment.Roster
	Aggregator *notification.Aggregator
	Messenger  notification.Messenger
	Documents  *Documents
	Events     shared.EventPublisher
	Logger     *zap.Logger
}

// Engine owns sub-order transitions. The state change is committed first;
// documents and notifications follow on a best-effort basis.
type Engine struct {
	orders     fulfillment.SubOrderRepository
	users      fulfillment.UserRepository
	roster     *fulfillment.Roster
	aggregator *notification.Aggregator
	messenger  notification.Messenger
	documents  *Documents
	events     shared.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an order engine
func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		orders:     deps.Orders,
		users:      deps.Users,
		roster:     deps.Roster,
		aggregator: deps.Aggregator,
		messenger:  deps.Messenger,
		documents:  deps.Documents,
		events:     deps.Events,
		logger:     logger,
		now:        time.Now,
	}
}

// AdvanceResult reports the outcome of a transition request. Changed is
// false when the order already was in the target state. Warnings name the
// downstream steps that failed after the state change was committed.
type AdvanceResult struct {
	Order    *fulfillment.SubOrder
	Changed  bool
	Warnings []string
}

func (r *AdvanceResult) warn(step string) {
	for _, w := range r.Warnings {
		if w == step {
			return
		}
	}
	r.Warnings = append(r.Warnings, step)
}

// Advance moves a sub-order to target on behalf of actorID. Authorization
// uses the stored category of the order. A concurrent writer causes a
// reload; if the reloaded order already reached target the call is a no-op.
func (e *Engine) Advance(ctx context.Context, orderID string, target fulfillment.Status, actorID int64) (*AdvanceResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "fulfillment.advance",
		telemetry.WithAttribute(telemetry.AttrOrderID, orderID),
		telemetry.WithAttribute(telemetry.AttrTarget, string(target)),
		telemetry.WithAttribute(telemetry.AttrActorID, actorID))
	defer span.End()

	res, err := e.advance(ctx, orderID, target, actorID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "order.changed", res.Changed, "order.warnings", len(res.Warnings))
	return res, nil
}

func (e *Engine) advance(ctx context.Context, orderID string, target fulfillment.Status, actorID int64) (*AdvanceResult, error) {
	if !target.IsValid() || target == fulfillment.StatusPending {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown target status %q", target))
	}

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.roster.Authorize(actorID, target, order.Category); err != nil {
		e.logger.Info("Transition denied",
			zap.String("order_id", orderID),
			zap.String("target", target.String()),
			zap.Int64("actor_id", actorID))
		return nil, err
	}

	actor := fulfillment.Actor{
		ID:    actorID,
		Label: fmt.Sprintf("%s (ID: %d)", e.roster.ActorLabel(actorID), actorID),
	}
	for attempt := 1; ; attempt++ {
		changed, err := order.Advance(target, actor, e.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return &AdvanceResult{Order: order}, nil
		}

		err = e.orders.SaveTransition(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt == maxTransitionAttempts {
			e.logger.Error("Failed to save transition",
				zap.String("order_id", orderID),
				zap.String("target", target.String()),
				zap.Error(err))
			return nil, err
		}
		if order, err = e.orders.FindByID(ctx, orderID); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Order advanced",
		zap.String("order_id", order.ID),
		zap.String("status", order.Status.String()),
		zap.Int64("actor_id", actorID))

	result := &AdvanceResult{Order: order, Changed: true}
	e.fanOut(ctx, result, target)
	return result, nil
}

func (e *Engine) fanOut(ctx context.Context, r *AdvanceResult, target fulfillment.Status) {
	order := r.Order

	if events := order.GetDomainEvents(); len(events) > 0 && e.events != nil {
		if err := e.events.Publish(ctx, events...); err != nil {
			e.logger.Warn("Failed to publish order events", zap.String("order_id", order.ID), zap.Error(err))
			r.warn(WarningEvents)
		}
	}
	order.ClearDomainEvents()

	user := e.customer(ctx, order.UserID)
	locale := fulfillment.DefaultLocale
	if user != nil {
		locale = user.Language
	}

	switch target {
	case fulfillment.StatusApproved:
		e.finalizeDocument(ctx, r, user)
		e.notifyProduction(ctx, r)
	case fulfillment.StatusWarehouseReceived:
		if order.Category != fulfillment.CategoryNone {
			if err := e.aggregator.NotifyCategoryReady(ctx, order, locale); err != nil {
				e.logger.Warn("Failed to send category ready message", zap.String("order_id", order.ID), zap.Error(err))
				r.warn(WarningCategoryReady)
			}
		}
	}

	if err := e.aggregator.PushSummary(ctx, order.BaseOrderID, order.UserID, locale); err != nil {
		e.logger.Warn("Failed to push client summary", zap.String("base_order_id", order.BaseOrderID), zap.Error(err))
		r.warn(WarningClientSummary)
	}
}

func (e *Engine) customer(ctx context.Context, userID int64) *fulfillment.User {
	if e.users == nil {
		return nil
	}
	u, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			e.logger.Warn("Failed to load customer", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return u
}

// finalizeDocument renders the approved sheet, uploads it and stores both
func (e *Engine) finalizeDocument(ctx context.Context, r *AdvanceResult, user *fulfillment.User) {
	order := r.Order
	if e.documents == nil {
		return
	}
	pdf, err := e.documents.Render(ctx, fulfillment.SheetFor(order, user, true))
	if err != nil {
		e.logger.Warn("Failed to render final document", zap.String("order_id", order.ID), zap.Error(err))
		r.warn(WarningDocument)
		return
	}
	order.FinalDocument = pdf
	if url := e.documents.Upload(ctx, order.ID, pdf); url != "" {
		order.DocumentURL = url
	}
	if err := e.orders.SaveDocuments(ctx, order); err != nil {
		e.logger.Warn("Failed to store final document", zap.String("order_id", order.ID), zap.Error(err))
		r.warn(WarningDocument)
	}
}

func (e *Engine) notifyProduction(ctx context.Context, r *AdvanceResult) {
	order := r.Order
	if order.Category == fulfillment.CategoryNone {
		return
	}
	text := ProductionNotice(order)
	for _, id := range e.roster.ProductionPool(order.Category) {
		if _, err := e.messenger.SendMessage(ctx, id, text, nil); err != nil {
			e.logger.Warn("Failed to notify production",
				zap.String("order_id", order.ID),
				zap.Int64("chat_id", id),
				zap.Error(err))
			r.warn(WarningProductionNotice)
		}
	}
}

// Card renders the department card of an order with the buttons of its
// next stage
func (e *Engine) Card(ctx context.Context, orderID string) (string, notification.Keyboard, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	return e.CardFor(ctx, order), ActionKeyboard(order), nil
}

// CardFor renders the department card of a loaded order
func (e *Engine) CardFor(ctx context.Context, order *fulfillment.SubOrder) string {
	siblings, err := e.orders.FindByBaseID(ctx, order.BaseOrderID)
	if err != nil {
		e.logger.Warn("Failed to load sibling orders", zap.String("base_order_id", order.BaseOrderID), zap.Error(err))
		siblings = nil
	}
	return AdminCard(order, siblings, e.customer(ctx, order.UserID))
}
