package fulfillment

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
)

const (
	// RecentOrdersLimit is how many orders /my shows
	RecentOrdersLimit = 10
	exportLimit       = 10000
	exportTimeLayout  = "2006-01-02 15:04:05"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoDocument is wrapped by the not-found error of an order without a PDF
var ErrNoDocument = errors.New("order has no document")

// Get returns one order for a department actor
func (e *Engine) Get(ctx context.Context, orderID string, actorID int64) (*fulfillment.SubOrder, error) {
	if !e.roster.IsAdmin(actorID) {
		return nil, shared.NewAuthorizationError("Only department members may view orders")
	}
	return e.orders.FindByID(ctx, orderID)
}

// ListForUser returns the newest orders of a customer
func (e *Engine) ListForUser(ctx context.Context, userID int64) ([]fulfillment.SubOrder, error) {
	return e.orders.FindByUser(ctx, userID, RecentOrdersLimit)
}

// Document returns the PDF of an order. Department members may fetch any
// order, customers only their own. The final document is preferred over
// the draft.
func (e *Engine) Document(ctx context.Context, orderID string, requesterID int64) (notification.Document, error) {
	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return notification.Document{}, err
	}
	if order.UserID != requesterID && !e.roster.IsAdmin(requesterID) {
		return notification.Document{}, shared.NewAuthorizationError("You can only download your own orders")
	}
	data := order.Document()
	if len(data) == 0 {
		return notification.Document{}, shared.WrapDomainError(shared.CodeNotFound, fmt.Sprintf("Order %s has no document", orderID), ErrNoDocument)
	}

	caption := fmt.Sprintf("📄 Заказ №%s\n💰 %s", order.ID, fulfillment.FormatCurrency(order.Total))
	if len(order.FinalDocument) == 0 {
		caption += "\n📝 Черновик"
	}
	return notification.Document{Filename: Filename(order.ID), Data: data, Caption: caption}, nil
}

// ExportCSV exports every order for the super-admin as a semicolon
// separated CSV with a UTF-8 byte order mark
func (e *Engine) ExportCSV(ctx context.Context, actorID int64) (notification.Document, error) {
	if !e.roster.IsSuperAdmin(actorID) {
		return notification.Document{}, shared.NewAuthorizationError("Only the super-admin may export orders")
	}
	orders, err := e.orders.FindAll(ctx, exportLimit)
	if err != nil {
		return notification.Document{}, err
	}
	if len(orders) == 0 {
		return notification.Document{}, shared.NewNotFoundError("There are no orders yet")
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	_ = w.Write([]string{"order_id", "client_name", "user_id", "total", "created_at", "status"})
	for i := range orders {
		o := &orders[i]
		_ = w.Write([]string{
			o.ID,
			o.ClientName,
			strconv.FormatInt(o.UserID, 10),
			o.Total.String(),
			o.CreatedAt.Format(exportTimeLayout),
			o.Status.String(),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return notification.Document{}, shared.WrapDomainError(shared.CodePersistence, "Failed to write export", err)
	}

	return notification.Document{
		Filename: fmt.Sprintf("orders_export_%s.csv", e.now().Format("20060102_150405")),
		Data:     buf.Bytes(),
		Caption:  "Экспорт заказов (CSV)",
	}, nil
}

// Summary renders the customer status card of a base order for a
// department actor
func (e *Engine) Summary(ctx context.Context, baseOrderID string, locale fulfillment.Locale, actorID int64) (string, error) {
	if !e.roster.IsAdmin(actorID) {
		return "", shared.NewAuthorizationError("Only department members may view summaries")
	}
	text, err := e.aggregator.BuildSummary(ctx, baseOrderID, locale)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", shared.NewNotFoundError(fmt.Sprintf("Base order %s not found", baseOrderID))
	}
	return text, nil
}
