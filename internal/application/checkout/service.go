package checkout

import (
	"context"
	"errors"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultPreviewTTL bounds how long a preview waits for a signature
const DefaultPreviewTTL = 30 * time.Minute

// Catalog serves the cached product list
type Catalog interface {
	Fetch(ctx context.Context) map[int64]fulfillment.Product
}

// DealerChecker answers whether a customer may order
type DealerChecker interface {
	Check(ctx context.Context, userID int64, phone string, force bool) fulfillment.DealerVerdict
}

// OrderLimiter gates order submission per customer
type OrderLimiter interface {
	SessionActive(userID int64) bool
	CheckCooldown(userID int64) (bool, int)
	RegisterOrder(userID int64)
}

// Dependencies wires the checkout service. Events may be nil.
type Dependencies struct {
	Users       fulfillment.UserRepository
	Orders      fulfillment.SubOrderRepository
	Catalog     Catalog
	Dealers     DealerChecker
	Limiter     OrderLimiter
	Documents   *appfulfillment.Documents
	Aggregator  *notification.Aggregator
	Messenger   notification.Messenger
	Events      shared.EventPublisher
	AdminChatID int64
	PreviewTTL  time.Duration
	Logger      *zap.Logger
}

// Service runs the two checkout steps: preview and signed confirmation
type Service struct {
	users       fulfillment.UserRepository
	orders      fulfillment.SubOrderRepository
	catalog     Catalog
	dealers     DealerChecker
	limiter     OrderLimiter
	documents   *appfulfillment.Documents
	aggregator  *notification.Aggregator
	messenger   notification.Messenger
	events      shared.EventPublisher
	adminChatID int64
	pending     *pendingPreviews
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a checkout service
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.PreviewTTL
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &Service{
		users:       deps.Users,
		orders:      deps.Orders,
		catalog:     deps.Catalog,
		dealers:     deps.Dealers,
		limiter:     deps.Limiter,
		documents:   deps.Documents,
		aggregator:  deps.Aggregator,
		messenger:   deps.Messenger,
		events:      deps.Events,
		adminChatID: deps.AdminChatID,
		pending:     newPendingPreviews(ttl),
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) profile(ctx context.Context, userID int64) (*fulfillment.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, profileIncomplete()
		}
		return nil, err
	}
	if !u.HasProfile() {
		return nil, profileIncomplete()
	}
	return u, nil
}

// Preview checks every gate, enriches the cart from the catalog and renders
// the draft document. The preview is kept until the customer signs it.
func (s *Service) Preview(ctx context.Context, userID int64, payload *Payload) (*Preview, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.preview", telemetry.WithAttribute(telemetry.AttrUserID, userID))
	defer span.End()

	preview, err := s.preview(ctx, userID, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return preview, nil
}

func (s *Service) preview(ctx context.Context, userID int64, payload *Payload) (*Preview, error) {
	if !s.limiter.SessionActive(userID) {
		return nil, sessionExpired()
	}
	u, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if verdict := s.dealers.Check(ctx, userID, u.PhoneDigits(), true); !verdict.IsActive {
		s.logger.Info("Order refused for inactive dealer",
			zap.Int64("user_id", userID),
			zap.String("status", verdict.Status))
		return nil, notDealer(verdict.Status)
	}
	if ok, remaining := s.limiter.CheckCooldown(userID); !ok {
		return nil, cooldown(remaining)
	}

	items, err := s.enrich(ctx, payload.CartItems())
	if err != nil {
		return nil, err
	}

	now := s.now()
	preview := &Preview{
		ID:        fulfillment.NewPreviewID(now, userID),
		UserID:    userID,
		Items:     items,
		Total:     fulfillment.SumItems(items),
		CreatedAt: now,
	}

	sheet := fulfillment.OrderSheet{
		OrderID:    preview.ID,
		ClientName: u.FullName,
		Items:      items,
		Total:      preview.Total,
		Latitude:   u.Latitude,
		Longitude:  u.Longitude,
	}
	if fulfillment.IsSingleCategory(items) {
		sheet.Category = fulfillment.OrderCategory(items)
	}
	doc, err := s.documents.Render(ctx, sheet)
	if err != nil {
		s.logger.Error("Failed to render preview", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}
	preview.Document = doc

	s.pending.put(preview)
	s.logger.Info("Order preview created",
		zap.Int64("user_id", userID),
		zap.String("preview_id", preview.ID),
		zap.Int("items", len(items)),
		zap.String("total", preview.Total.String()))
	return preview, nil
}

// enrich snapshots catalog data for every cart line. An empty catalog means
// the source is unavailable, never that no products exist.
func (s *Service) enrich(ctx context.Context, cart []fulfillment.CartItem) ([]fulfillment.OrderItem, error) {
	products := s.catalog.Fetch(ctx)
	if len(products) == 0 {
		s.logger.Warn("Catalog is empty, refusing order")
		return nil, catalogUnavailable()
	}
	items := make([]fulfillment.OrderItem, 0, len(cart))
	for _, c := range cart {
		p, ok := products[c.ProductID]
		if !ok {
			s.logger.Warn("Product not in catalog", zap.Int64("product_id", c.ProductID))
			return nil, unknownProduct(c.ProductID)
		}
		items = append(items, fulfillment.NewOrderItem(p, c.Qty))
	}
	return items, nil
}

// HasPending reports whether the customer has a preview waiting for a
// signature
func (s *Service) HasPending(userID int64) bool {
	_, ok := s.pending.get(userID, s.now())
	return ok
}

// Cancel discards a waiting preview
func (s *Service) Cancel(userID int64) {
	s.pending.drop(userID)
}

// Confirmation describes a created base order
type Confirmation struct {
	BaseOrderID string
	Orders      []*fulfillment.SubOrder
	Total       decimal.Decimal
	ItemCount   int
	SignedAs    string
	// Dropped lists product ids that matched no category and were left out
	Dropped []int64
	// Warnings name downstream steps that failed after the orders were stored
	Warnings []string
}

// Downstream steps of a confirmation that may fail without undoing it
const (
	WarningDocument      = "document"
	WarningAdminCard     = "admin_card"
	WarningClientSummary = "client_summary"
	WarningEvents        = "events"
)

func (c *Confirmation) warn(step string) {
	for _, w := range c.Warnings {
		if w == step {
			return
		}
	}
	c.Warnings = append(c.Warnings, step)
}

// Confirm signs the pending preview, splits it by category and stores all
// sub-orders in one transaction. Documents, admin cards and the first client
// summary follow on a best-effort basis.
func (s *Service) Confirm(ctx context.Context, userID int64, signature string) (*Confirmation, error) {
	ctx, span := telemetry.StartSpan(ctx, "checkout.confirm", telemetry.WithAttribute(telemetry.AttrUserID, userID))
	defer span.End()

	conf, err := s.confirm(ctx, userID, signature)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.AttrBaseOrderID, conf.BaseOrderID,
		telemetry.AttrParts, len(conf.Orders))
	return conf, nil
}

func (s *Service) confirm(ctx context.Context, userID int64, signature string) (*Confirmation, error) {
	preview, ok := s.pending.get(userID, s.now())
	if !ok {
		return nil, noPendingOrder()
	}
	if normalizeName(signature) == "" {
		return nil, emptySignature()
	}
	u, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !signatureMatches(signature, u.FullName) {
		return nil, signatureMismatch(u.FullName)
	}

	groups, dropped := splitItems(preview.Items)
	if len(groups) == 0 {
		return nil, nothingToOrder()
	}
	if len(dropped) > 0 {
		s.logger.Warn("Items outside every category were left out",
			zap.Int64("user_id", userID),
			zap.Int64s("product_ids", dropped))
	}

	now := s.now()
	baseID := fulfillment.NewBaseOrderID(now, userID)
	conf := &Confirmation{BaseOrderID: baseID, SignedAs: u.FullName, Dropped: dropped, Total: decimal.Zero}

	cats := make([]fulfillment.Category, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	fulfillment.SortCategories(cats)

	for i, cat := range cats {
		o, err := fulfillment.NewSubOrder(fulfillment.SubOrderID(baseID, i+1), baseID, userID, u.FullName, cat, groups[cat], now)
		if err != nil {
			return nil, err
		}
		doc, err := s.documents.Render(ctx, fulfillment.SheetFor(o, u, false))
		if err != nil {
			s.logger.Warn("Failed to render order document", zap.String("order_id", o.ID), zap.Error(err))
			conf.warn(WarningDocument)
		}
		o.DraftDocument = doc
		conf.Orders = append(conf.Orders, o)
		conf.Total = conf.Total.Add(o.Total)
		conf.ItemCount += o.ItemCount()
	}

	if err := s.orders.Create(ctx, conf.Orders...); err != nil {
		s.logger.Error("Failed to create orders", zap.String("base_order_id", baseID), zap.Error(err))
		return nil, err
	}
	s.limiter.RegisterOrder(userID)
	s.pending.take(preview)

	s.logger.Info("Order confirmed",
		zap.String("base_order_id", baseID),
		zap.Int64("user_id", userID),
		zap.Int("parts", len(conf.Orders)),
		zap.String("total", conf.Total.String()))

	s.fanOut(ctx, conf, u)
	return conf, nil
}

// splitItems groups items by category. A single-category cart skips the
// router.
func splitItems(items []fulfillment.OrderItem) (map[fulfillment.Category][]fulfillment.OrderItem, []int64) {
	if fulfillment.IsSingleCategory(items) {
		return map[fulfillment.Category][]fulfillment.OrderItem{fulfillment.OrderCategory(items): items}, nil
	}
	p := fulfillment.Split(items)
	var dropped []int64
	for _, it := range p.Dropped {
		dropped = append(dropped, it.ID)
	}
	return p.Groups, dropped
}

func (s *Service) fanOut(ctx context.Context, conf *Confirmation, u *fulfillment.User) {
	var events []shared.DomainEvent
	for _, o := range conf.Orders {
		events = append(events, o.GetDomainEvents()...)
		o.ClearDomainEvents()
	}
	if s.events != nil && len(events) > 0 {
		if err := s.events.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish order events", zap.String("base_order_id", conf.BaseOrderID), zap.Error(err))
			conf.warn(WarningEvents)
		}
	}

	siblings := make([]fulfillment.SubOrder, 0, len(conf.Orders))
	for _, o := range conf.Orders {
		siblings = append(siblings, *o)
	}

	for _, o := range conf.Orders {
		if url := s.documents.Upload(ctx, o.ID, o.DraftDocument); url != "" {
			o.DocumentURL = url
			if err := s.orders.SaveDocuments(ctx, o); err != nil {
				s.logger.Warn("Failed to store document url", zap.String("order_id", o.ID), zap.Error(err))
				conf.warn(WarningDocument)
			}
		}
		if err := s.postAdminCard(ctx, o, siblings, u); err != nil {
			s.logger.Warn("Failed to post admin card",
				zap.String("order_id", o.ID),
				zap.Int64("chat_id", s.adminChatID),
				zap.Error(err))
			conf.warn(WarningAdminCard)
		}
	}

	if err := s.aggregator.PushSummary(ctx, conf.BaseOrderID, u.ID, u.Language); err != nil {
		s.logger.Warn("Failed to push client summary", zap.String("base_order_id", conf.BaseOrderID), zap.Error(err))
		conf.warn(WarningClientSummary)
	}
}

func (s *Service) postAdminCard(ctx context.Context, o *fulfillment.SubOrder, siblings []fulfillment.SubOrder, u *fulfillment.User) error {
	if s.adminChatID == 0 {
		return nil
	}
	card := appfulfillment.AdminCard(o, siblings, u)
	kb := appfulfillment.ActionKeyboard(o)
	if len(o.DraftDocument) == 0 {
		_, err := s.messenger.SendMessage(ctx, s.adminChatID, card, kb)
		return err
	}
	doc := notification.Document{Filename: appfulfillment.Filename(o.ID), Data: o.DraftDocument, Caption: card}
	_, err := s.messenger.SendDocument(ctx, s.adminChatID, doc, kb)
	return err
}
