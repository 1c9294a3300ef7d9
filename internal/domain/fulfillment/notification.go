package fulfillment

import "time"

// ClientNotification points at the one live aggregate status message of a
// base order. base_order_id is unique.
type ClientNotification struct {
	BaseOrderID string
	UserID      int64
	MessageID   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
