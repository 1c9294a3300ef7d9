// Package fulfillment drives sub-orders through their lifecycle and answers
// order queries for customers and departments.
package fulfillment

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// DocumentRenderer turns an order sheet into a PDF
type DocumentRenderer interface {
	Render(ctx context.Context, sheet fulfillment.OrderSheet) ([]byte, error)
}

// DocumentStore publishes rendered documents. Upload never fails loudly;
// ok is false when the document could not be stored.
type DocumentStore interface {
	Upload(ctx context.Context, orderID string, data []byte) (ok bool, publicURL string)
}

// Offloader runs blocking work on a bounded pool and waits for it
type Offloader interface {
	Submit(ctx context.Context, fn func(ctx context.Context) error) error
}
