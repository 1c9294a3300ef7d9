package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements fulfillment.NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// FindByBaseID returns the live message for a base order
func (r *GormNotificationRepository) FindByBaseID(ctx context.Context, baseID string) (*fulfillment.ClientNotification, error) {
	var model models.ClientNotificationModel
	if err := r.db.WithContext(ctx).First(&model, "base_order_id = ?", baseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load notification", err)
	}
	return model.ToDomain(), nil
}

// Upsert inserts the row or replaces message and owner on conflict. Two
// first notifications racing for the same base order both send a message;
// the later write wins the row.
func (r *GormNotificationRepository) Upsert(ctx context.Context, n *fulfillment.ClientNotification) error {
	now := time.Now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	model := models.ClientNotificationModelFromDomain(n)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "base_order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "message_id", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return shared.NewPersistenceError("failed to upsert notification", err)
	}
	return nil
}

var _ fulfillment.NotificationRepository = (*GormNotificationRepository)(nil)
