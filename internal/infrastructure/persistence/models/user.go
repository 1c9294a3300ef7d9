package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// UserModel is the persistence model for a customer. The id is the chat
// platform user id.
type UserModel struct {
	ID           int64  `gorm:"primaryKey;autoIncrement:false"`
	Username     string `gorm:"type:varchar(255)"`
	FirstName    string `gorm:"type:varchar(255)"`
	LastName     string `gorm:"type:varchar(255)"`
	Language     string `gorm:"type:varchar(8);not null;default:'ru'"`
	Phone        string `gorm:"type:varchar(32)"`
	City         string `gorm:"type:varchar(255)"`
	FullName     string `gorm:"type:varchar(255)"`
	Latitude     *float64
	Longitude    *float64
	CreatedAt    time.Time `gorm:"not null;index"`
	LastActivity time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *fulfillment.User {
	return &fulfillment.User{
		ID:           m.ID,
		Username:     m.Username,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Language:     fulfillment.ParseLocale(m.Language),
		Phone:        m.Phone,
		City:         m.City,
		FullName:     m.FullName,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		CreatedAt:    m.CreatedAt,
		LastActivity: m.LastActivity,
	}
}

// UserModelFromDomain creates a model from a domain User
func UserModelFromDomain(u *fulfillment.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Language:     string(u.Language),
		Phone:        u.Phone,
		City:         u.City,
		FullName:     u.FullName,
		Latitude:     u.Latitude,
		Longitude:    u.Longitude,
		CreatedAt:    u.CreatedAt,
		LastActivity: u.LastActivity,
	}
}
