package fulfillment

import (
	"context"
	"time"
)

// SubOrderRepository persists sub-orders and their audit history
type SubOrderRepository interface {
	// FindByID returns shared.ErrNotFound for an unknown id
	FindByID(ctx context.Context, id string) (*SubOrder, error)
	// FindByBaseID returns every sub-order whose base id or own id equals
	// baseID, ordered by id
	FindByBaseID(ctx context.Context, baseID string) ([]SubOrder, error)
	// FindByUser returns the newest orders of a customer
	FindByUser(ctx context.Context, userID int64, limit int) ([]SubOrder, error)
	// FindAll returns the newest orders across all customers
	FindAll(ctx context.Context, limit int) ([]SubOrder, error)
	// Create inserts all sub-orders of one checkout atomically
	Create(ctx context.Context, orders ...*SubOrder) error
	// SaveTransition persists status, actor fields and new audit
	// entries in one transaction, guarded by the aggregate version
	SaveTransition(ctx context.Context, order *SubOrder) error
	// SaveDocuments stores rendered documents and the public URL
	SaveDocuments(ctx context.Context, order *SubOrder) error
}

// NotificationRepository stores the live aggregate message per base order
type NotificationRepository interface {
	FindByBaseID(ctx context.Context, baseID string) (*ClientNotification, error)
	// Upsert inserts or replaces the row keyed by base order id
	Upsert(ctx context.Context, n *ClientNotification) error
}

// UserRepository stores customers
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	Save(ctx context.Context, u *User) error
	ListIDs(ctx context.Context) ([]int64, error)
	Stats(ctx context.Context, now time.Time) (UserStats, error)
}
