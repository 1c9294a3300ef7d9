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

// listColumns leaves the document blobs out of list queries
var listColumns = []string{
	"id", "base_order_id", "user_id", "client_name", "category", "items", "total", "status",
	"document_url", "approved_by", "rejected_by", "production_received_by", "production_started_by",
	"sent_to_warehouse_by", "warehouse_received_by", "version", "created_at", "updated_at",
}

// GormSubOrderRepository implements fulfillment.SubOrderRepository using GORM
type GormSubOrderRepository struct {
	db *gorm.DB
}

// NewGormSubOrderRepository creates a new GormSubOrderRepository
func NewGormSubOrderRepository(db *gorm.DB) *GormSubOrderRepository {
	return &GormSubOrderRepository{db: db}
}

func preloadAudit(db *gorm.DB) *gorm.DB {
	return db.Order("at ASC, id ASC")
}

// FindByID loads one sub-order with documents and history
func (r *GormSubOrderRepository) FindByID(ctx context.Context, id string) (*fulfillment.SubOrder, error) {
	var model models.SubOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Audit", preloadAudit).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("failed to load sub-order", err)
	}
	return model.ToDomain(), nil
}

// FindByBaseID returns the sibling sub-orders of a checkout, ordered by id
func (r *GormSubOrderRepository) FindByBaseID(ctx context.Context, baseID string) ([]fulfillment.SubOrder, error) {
	var rows []models.SubOrderModel
	if err := r.db.WithContext(ctx).
		Select(listColumns).
		Where("base_order_id = ? OR id = ?", baseID, baseID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to load sibling sub-orders", err)
	}
	return toDomainSubOrders(rows), nil
}

// FindByUser returns the newest sub-orders of a customer
func (r *GormSubOrderRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]fulfillment.SubOrder, error) {
	var rows []models.SubOrderModel
	query := r.db.WithContext(ctx).
		Select(listColumns).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to list customer orders", err)
	}
	return toDomainSubOrders(rows), nil
}

// FindAll returns the newest sub-orders across all customers
func (r *GormSubOrderRepository) FindAll(ctx context.Context, limit int) ([]fulfillment.SubOrder, error) {
	var rows []models.SubOrderModel
	query := r.db.WithContext(ctx).
		Select(listColumns).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, shared.NewPersistenceError("failed to list orders", err)
	}
	return toDomainSubOrders(rows), nil
}

// Create inserts all sub-orders of one checkout in a single transaction
func (r *GormSubOrderRepository) Create(ctx context.Context, orders ...*fulfillment.SubOrder) error {
	if len(orders) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			if err := tx.Create(models.SubOrderModelFromDomain(o)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.WrapDomainError(shared.CodeConflict, "sub-order already exists", err)
		}
		return shared.NewPersistenceError("failed to create sub-orders", err)
	}
	return nil
}

// SaveTransition writes status, actor columns and new audit rows together.
// Documents are left to SaveDocuments so a transition saved from a copy
// loaded before rendering finished cannot clear them. The update only applies when the stored version
// matches, so a concurrent writer gets shared.ErrConcurrencyConflict.
func (r *GormSubOrderRepository) SaveTransition(ctx context.Context, order *fulfillment.SubOrder) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.SubOrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"status":                 string(order.Status),
				"approved_by":            order.ApprovedBy,
				"rejected_by":            order.RejectedBy,
				"production_received_by": order.ProductionReceivedBy,
				"production_started_by":  order.ProductionStartedBy,
				"sent_to_warehouse_by":   order.SentToWarehouseBy,
				"warehouse_received_by":  order.WarehouseReceivedBy,
				"version":                order.Version + 1,
				"updated_at":             time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		rows := models.AuditModelsFromDomain(order.ID, order.History)
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sub_order_id"}, {Name: "stage"}},
			DoNothing: true,
		}).Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		return shared.NewPersistenceError("failed to save transition", err)
	}
	order.IncrementVersion()
	return nil
}

// SaveDocuments stores rendered documents and the public URL without
// touching status or version
func (r *GormSubOrderRepository) SaveDocuments(ctx context.Context, order *fulfillment.SubOrder) error {
	updates := map[string]any{
		"document_url": order.DocumentURL,
		"updated_at":   time.Now(),
	}
	if len(order.DraftDocument) > 0 {
		updates["draft_document"] = order.DraftDocument
	}
	if len(order.FinalDocument) > 0 {
		updates["final_document"] = order.FinalDocument
	}

	result := r.db.WithContext(ctx).Model(&models.SubOrderModel{}).
		Where("id = ?", order.ID).
		Updates(updates)
	if result.Error != nil {
		return shared.NewPersistenceError("failed to save documents", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toDomainSubOrders(rows []models.SubOrderModel) []fulfillment.SubOrder {
	out := make([]fulfillment.SubOrder, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out
}

var _ fulfillment.SubOrderRepository = (*GormSubOrderRepository)(nil)
