package persistence

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, (&Database{DB: db}).AutoMigrate())
	return db
}

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func testItem(id int64, qty int64, price string) fulfillment.OrderItem {
	cat, _ := fulfillment.Classify(id)
	return fulfillment.OrderItem{
		ID:       id,
		Name:     "item",
		Price:    decimal.RequireFromString(price),
		Qty:      qty,
		Weight:   decimal.NewFromInt(1),
		Cube:     decimal.Zero,
		Category: cat,
	}
}

func newTestSubOrder(t *testing.T, id, baseID string, userID int64, items ...fulfillment.OrderItem) *fulfillment.SubOrder {
	t.Helper()
	cat := fulfillment.OrderCategory(items)
	o, err := fulfillment.NewSubOrder(id, baseID, userID, "Ivan Petrov", cat, items, testNow)
	require.NoError(t, err)
	o.DraftDocument = []byte("%PDF-draft")
	return o
}
