package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// ClientNotificationModel maps a base order to its live status message
type ClientNotificationModel struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	BaseOrderID string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID      int64     `gorm:"not null;index"`
	MessageID   int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ClientNotificationModel) TableName() string {
	return "client_notifications"
}

// ToDomain converts the model to a domain ClientNotification
func (m *ClientNotificationModel) ToDomain() *fulfillment.ClientNotification {
	return &fulfillment.ClientNotification{
		BaseOrderID: m.BaseOrderID,
		UserID:      m.UserID,
		MessageID:   m.MessageID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ClientNotificationModelFromDomain creates a model from a domain notification
func ClientNotificationModelFromDomain(n *fulfillment.ClientNotification) *ClientNotificationModel {
	return &ClientNotificationModel{
		BaseOrderID: n.BaseOrderID,
		UserID:      n.UserID,
		MessageID:   n.MessageID,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}
