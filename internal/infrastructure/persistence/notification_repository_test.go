package persistence

import (
	"context"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormNotificationRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	_, err := repo.FindByBaseID(ctx, "B")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &fulfillment.ClientNotification{BaseOrderID: "B", UserID: 42, MessageID: 100}))

	got, err := repo.FindByBaseID(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.MessageID)
	assert.False(t, got.CreatedAt.IsZero())

	t.Run("upsert replaces message id", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, &fulfillment.ClientNotification{BaseOrderID: "B", UserID: 42, MessageID: 200}))

		got, err := repo.FindByBaseID(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, int64(200), got.MessageID)

		var count int64
		require.NoError(t, db.Table("client_notifications").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
