package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubOrderModel is the persistence model for fulfillment.SubOrder
type SubOrderModel struct {
	ID            string                  `gorm:"type:varchar(64);primaryKey"`
	BaseOrderID   string                  `gorm:"type:varchar(64);not null;index"`
	UserID        int64                   `gorm:"not null;index"`
	ClientName    string                  `gorm:"type:varchar(255)"`
	Category      string                  `gorm:"type:varchar(32);index"`
	Items         []fulfillment.OrderItem `gorm:"serializer:json;type:text;not null"`
	Total         decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Status        string                  `gorm:"type:varchar(32);not null;index"`
	DraftDocument []byte
	FinalDocument []byte
	DocumentURL   string `gorm:"type:text"`

	ApprovedBy           *int64
	RejectedBy           *int64
	ProductionReceivedBy *int64
	ProductionStartedBy  *int64
	SentToWarehouseBy    *int64
	WarehouseReceivedBy  *int64

	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Audit []SubOrderAuditModel `gorm:"foreignKey:SubOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (SubOrderModel) TableName() string {
	return "sub_orders"
}

// SubOrderAuditModel is one row of a sub-order's transition history. A stage
// is reached at most once per order.
type SubOrderAuditModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SubOrderID string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_sub_order_audit_stage"`
	Stage      string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_sub_order_audit_stage"`
	ActorID    int64     `gorm:"not null"`
	ActorLabel string    `gorm:"type:varchar(255)"`
	At         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubOrderAuditModel) TableName() string {
	return "sub_order_audit"
}

// ToDomain converts the model to a domain SubOrder
func (m *SubOrderModel) ToDomain() *fulfillment.SubOrder {
	o := &fulfillment.SubOrder{
		BaseAggregateRoot:    shared.BaseAggregateRoot{Version: m.Version},
		ID:                   m.ID,
		BaseOrderID:          m.BaseOrderID,
		UserID:               m.UserID,
		ClientName:           m.ClientName,
		Category:             fulfillment.Category(m.Category),
		Items:                m.Items,
		Total:                m.Total,
		Status:               fulfillment.Status(m.Status),
		CreatedAt:            m.CreatedAt,
		DraftDocument:        m.DraftDocument,
		FinalDocument:        m.FinalDocument,
		DocumentURL:          m.DocumentURL,
		ApprovedBy:           m.ApprovedBy,
		RejectedBy:           m.RejectedBy,
		ProductionReceivedBy: m.ProductionReceivedBy,
		ProductionStartedBy:  m.ProductionStartedBy,
		SentToWarehouseBy:    m.SentToWarehouseBy,
		WarehouseReceivedBy:  m.WarehouseReceivedBy,
		History:              make([]fulfillment.AuditEntry, 0, len(m.Audit)),
	}
	if o.Items == nil {
		o.Items = []fulfillment.OrderItem{}
	}
	for _, a := range m.Audit {
		o.History = append(o.History, a.ToDomain())
	}
	return o
}

// FromDomain populates the model from a domain SubOrder
func (m *SubOrderModel) FromDomain(o *fulfillment.SubOrder) {
	m.ID = o.ID
	m.BaseOrderID = o.BaseOrderID
	m.UserID = o.UserID
	m.ClientName = o.ClientName
	m.Category = string(o.Category)
	m.Items = o.Items
	m.Total = o.Total
	m.Status = string(o.Status)
	m.DraftDocument = o.DraftDocument
	m.FinalDocument = o.FinalDocument
	m.DocumentURL = o.DocumentURL
	m.ApprovedBy = o.ApprovedBy
	m.RejectedBy = o.RejectedBy
	m.ProductionReceivedBy = o.ProductionReceivedBy
	m.ProductionStartedBy = o.ProductionStartedBy
	m.SentToWarehouseBy = o.SentToWarehouseBy
	m.WarehouseReceivedBy = o.WarehouseReceivedBy
	m.Version = o.Version
	m.CreatedAt = o.CreatedAt
	m.Audit = AuditModelsFromDomain(o.ID, o.History)
}

// SubOrderModelFromDomain creates a new model from a domain SubOrder
func SubOrderModelFromDomain(o *fulfillment.SubOrder) *SubOrderModel {
	m := &SubOrderModel{}
	m.FromDomain(o)
	return m
}

// ToDomain converts an audit row to a domain entry
func (a SubOrderAuditModel) ToDomain() fulfillment.AuditEntry {
	return fulfillment.AuditEntry{
		Stage:      fulfillment.Status(a.Stage),
		ActorID:    a.ActorID,
		ActorLabel: a.ActorLabel,
		At:         a.At,
	}
}

// AuditModelsFromDomain converts a history list to audit rows
func AuditModelsFromDomain(subOrderID string, history []fulfillment.AuditEntry) []SubOrderAuditModel {
	rows := make([]SubOrderAuditModel, 0, len(history))
	for _, e := range history {
		rows = append(rows, SubOrderAuditModel{
			SubOrderID: subOrderID,
			Stage:      string(e.Stage),
			ActorID:    e.ActorID,
			ActorLabel: e.ActorLabel,
			At:         e.At,
		})
	}
	return rows
}
