// Package notification keeps the customer's single live status card of a
// base order in sync with the states of its sub-orders.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Aggregator renders and upserts the customer-facing summary message
type Aggregator struct {
	orders        fulfillment.SubOrderRepository
	notifications fulfillment.NotificationRepository
	messenger     Messenger
	logger        *zap.Logger
	now           func() time.Time
}

// NewAggregator creates an aggregator
func NewAggregator(
	orders fulfillment.SubOrderRepository,
	notifications fulfillment.NotificationRepository,
	messenger Messenger,
	logger *zap.Logger,
) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		orders:        orders,
		notifications: notifications,
		messenger:     messenger,
		logger:        logger,
		now:           time.Now,
	}
}

type categoryLine struct {
	status Status
	items  int
	sum    decimal.Decimal
}

// Status is re-exported for brevity inside the package
type Status = fulfillment.Status

// BuildSummary renders the status card of a base order. It returns an
// empty string when the base order has no sub-orders.
func (a *Aggregator) BuildSummary(ctx context.Context, baseOrderID string, locale fulfillment.Locale) (string, error) {
	orders, err := a.orders.FindByBaseID(ctx, baseOrderID)
	if err != nil {
		return "", err
	}
	return RenderSummary(baseOrderID, orders, locale), nil
}

// RenderSummary is the pure rendering step of BuildSummary. Categories are
// listed in lexicographic order of their keys so identical rows always give
// identical text.
func RenderSummary(baseOrderID string, orders []fulfillment.SubOrder, locale fulfillment.Locale) string {
	if len(orders) == 0 {
		return ""
	}
	texts, ok := summaryByLocale[locale]
	if !ok {
		locale = fulfillment.DefaultLocale
		texts = summaryByLocale[locale]
	}

	lines := make(map[fulfillment.Category]*categoryLine)
	totalItems := 0
	totalSum := decimal.Zero
	for i := range orders {
		o := &orders[i]
		totalItems += o.ItemCount()
		totalSum = totalSum.Add(o.Total)
		if o.Category == fulfillment.CategoryNone {
			continue
		}
		line, exists := lines[o.Category]
		if !exists {
			line = &categoryLine{status: o.Status, sum: decimal.Zero}
			lines[o.Category] = line
		}
		line.items += o.ItemCount()
		line.sum = line.sum.Add(o.Total)
	}

	cats := make([]fulfillment.Category, 0, len(lines))
	for c := range lines {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	var b strings.Builder
	fmt.Fprintf(&b, texts.header+"\n\n", baseOrderID)
	b.WriteString(texts.subheader + "\n\n")
	for _, c := range cats {
		line := lines[c]
		fmt.Fprintf(&b, "%s %s\n", c.Emoji(), c.Name(locale))
		b.WriteString(line.status.Label(locale) + "\n")
		fmt.Fprintf(&b, texts.itemsAndSum+"\n\n", line.items, fulfillment.FormatCurrency(line.sum))
	}
	b.WriteString(summaryRule + "\n")
	fmt.Fprintf(&b, texts.totalItems+"\n", totalItems)
	fmt.Fprintf(&b, texts.totalSum, fulfillment.FormatCurrency(totalSum))
	return b.String()
}

// PushSummary edits the existing status card of the base order or sends a
// new one and records its id. A card that can no longer be edited is
// replaced by a fresh message.
//
// Two concurrent pushes for a base order without a card may both send a
// message; the notification row is upserted so only the last one is kept.
func (a *Aggregator) PushSummary(ctx context.Context, baseOrderID string, userID int64, locale fulfillment.Locale) error {
	text, err := a.BuildSummary(ctx, baseOrderID, locale)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	existing, err := a.notifications.FindByBaseID(ctx, baseOrderID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if existing != nil {
		err := a.messenger.EditMessage(ctx, userID, existing.MessageID, text, nil)
		if err == nil {
			a.logger.Debug("Client notification updated",
				zap.String("base_order_id", baseOrderID),
				zap.Int64("message_id", existing.MessageID))
			return nil
		}
		if !errors.Is(err, ErrMessageNotFound) {
			return shared.NewUpstreamError("Failed to update client notification", err)
		}
		a.logger.Info("Client notification vanished, sending a new one",
			zap.String("base_order_id", baseOrderID))
	}

	messageID, err := a.messenger.SendMessage(ctx, userID, text, nil)
	if err != nil {
		return shared.NewUpstreamError("Failed to send client notification", err)
	}

	now := a.now()
	n := &fulfillment.ClientNotification{
		BaseOrderID: baseOrderID,
		UserID:      userID,
		MessageID:   messageID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		n.CreatedAt = existing.CreatedAt
	}
	if err := a.notifications.Upsert(ctx, n); err != nil {
		return err
	}
	a.logger.Debug("Client notification sent",
		zap.String("base_order_id", baseOrderID),
		zap.Int64("message_id", messageID))
	return nil
}

// RenderCategoryReady renders the standalone "category is ready" message
func RenderCategoryReady(o *fulfillment.SubOrder, locale fulfillment.Locale) string {
	texts, ok := readyByLocale[locale]
	if !ok {
		texts = readyByLocale[fulfillment.DefaultLocale]
		locale = fulfillment.DefaultLocale
	}
	var b strings.Builder
	b.WriteString(texts.greeting + "\n\n")
	fmt.Fprintf(&b, "%s <b>%s</b>\n", o.Category.Emoji(), o.Category.Name(locale))
	fmt.Fprintf(&b, texts.order+"\n\n", o.ID)
	b.WriteString(texts.ready + "\n\n")
	fmt.Fprintf(&b, texts.items+"\n", o.ItemCount())
	fmt.Fprintf(&b, texts.sum, fulfillment.FormatCurrency(o.Total))
	return b.String()
}

// NotifyCategoryReady sends the standalone completion message of one
// category, separate from the status card
func (a *Aggregator) NotifyCategoryReady(ctx context.Context, o *fulfillment.SubOrder, locale fulfillment.Locale) error {
	if _, err := a.messenger.SendMessage(ctx, o.UserID, RenderCategoryReady(o, locale), nil); err != nil {
		return shared.NewUpstreamError("Failed to send category ready message", err)
	}
	return nil
}
