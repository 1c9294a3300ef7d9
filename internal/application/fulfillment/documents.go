package fulfillment

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// Documents renders order sheets on the worker pool and uploads the results
type Documents struct {
	renderer DocumentRenderer
	store    DocumentStore
	pool     Offloader
	logger   *zap.Logger
}

// NewDocuments creates a document service. A nil pool renders inline and a
// nil store skips uploads.
func NewDocuments(renderer DocumentRenderer, store DocumentStore, pool Offloader, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{renderer: renderer, store: store, pool: pool, logger: logger}
}

// Render produces the PDF of a sheet
func (d *Documents) Render(ctx context.Context, sheet fulfillment.OrderSheet) ([]byte, error) {
	if d.renderer == nil {
		return nil, shared.NewUpstreamError("Document renderer is not configured", nil)
	}
	if d.pool == nil {
		return d.render(ctx, sheet)
	}

	var pdf []byte
	err := d.pool.Submit(ctx, func(ctx context.Context) error {
		var err error
		pdf, err = d.render(ctx, sheet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (d *Documents) render(ctx context.Context, sheet fulfillment.OrderSheet) ([]byte, error) {
	pdf, err := d.renderer.Render(ctx, sheet)
	if err != nil {
		return nil, shared.NewUpstreamError(fmt.Sprintf("Failed to render document %s", sheet.OrderID), err)
	}
	return pdf, nil
}

// Upload stores a document and returns its public URL, or "" when the
// upload did not happen
func (d *Documents) Upload(ctx context.Context, orderID string, pdf []byte) string {
	if d.store == nil || len(pdf) == 0 {
		return ""
	}
	ok, url := d.store.Upload(ctx, orderID, pdf)
	if !ok {
		d.logger.Warn("Document upload failed", zap.String("order_id", orderID))
		return ""
	}
	return url
}

// Filename is the attachment name of an order document
func Filename(orderID string) string {
	return fmt.Sprintf("order_%s.pdf", orderID)
}
