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

// GormUserRepository implements fulfillment.UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a customer by chat user id
func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*fulfillment.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load user", err)
	}
	return model.ToDomain(), nil
}

// Save inserts or fully replaces a customer row
func (r *GormUserRepository) Save(ctx context.Context, u *fulfillment.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(models.UserModelFromDomain(u)).Error
	if err != nil {
		return shared.NewPersistenceError("failed to save user", err)
	}
	return nil
}

// ListIDs returns every known customer id
func (r *GormUserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.UserModel{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to list users", err)
	}
	return ids, nil
}

// Stats counts all customers, those active in the last 30 days and those
// registered in the last 7 days
func (r *GormUserRepository) Stats(ctx context.Context, now time.Time) (fulfillment.UserStats, error) {
	var stats fulfillment.UserStats
	db := r.db.WithContext(ctx).Model(&models.UserModel{})

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, shared.NewPersistenceError("failed to count users", err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("last_activity >= ?", now.AddDate(0, 0, -30)).
		Count(&stats.Active30d).Error; err != nil {
		return stats, shared.NewPersistenceError("failed to count active users", err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("created_at >= ?", now.AddDate(0, 0, -7)).
		Count(&stats.New7d).Error; err != nil {
		return stats, shared.NewPersistenceError("failed to count new users", err)
	}
	return stats, nil
}

var _ fulfillment.UserRepository = (*GormUserRepository)(nil)
