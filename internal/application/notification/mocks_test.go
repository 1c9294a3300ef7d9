package notification

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/stretchr/testify/mock"
)

// MockSubOrderRepository is a mock implementation of fulfillment.SubOrderRepository
type MockSubOrderRepository struct {
	mock.Mock
}

func (m *MockSubOrderRepository) FindByID(ctx context.Context, id string) (*fulfillment.SubOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.SubOrder), args.Error(1)
}

func (m *MockSubOrderRepository) FindByBaseID(ctx context.Context, baseID string) ([]fulfillment.SubOrder, error) {
	args := m.Called(ctx, baseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.SubOrder), args.Error(1)
}

func (m *MockSubOrderRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]fulfillment.SubOrder, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.SubOrder), args.Error(1)
}

func (m *MockSubOrderRepository) FindAll(ctx context.Context, limit int) ([]fulfillment.SubOrder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.SubOrder), args.Error(1)
}

func (m *MockSubOrderRepository) Create(ctx context.Context, orders ...*fulfillment.SubOrder) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockSubOrderRepository) SaveTransition(ctx context.Context, order *fulfillment.SubOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockSubOrderRepository) SaveDocuments(ctx context.Context, order *fulfillment.SubOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockNotificationRepository is a mock implementation of fulfillment.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) FindByBaseID(ctx context.Context, baseID string) (*fulfillment.ClientNotification, error) {
	args := m.Called(ctx, baseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.ClientNotification), args.Error(1)
}

func (m *MockNotificationRepository) Upsert(ctx context.Context, n *fulfillment.ClientNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, text, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditMessage(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	args := m.Called(ctx, chatID, messageID, text, kb)
	return args.Error(0)
}

func (m *MockMessenger) SendDocument(ctx context.Context, chatID int64, doc Document, kb Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, doc, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditCaption(ctx context.Context, chatID, messageID int64, caption string, kb Keyboard) error {
	args := m.Called(ctx, chatID, messageID, caption, kb)
	return args.Error(0)
}
