package checkout

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
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

// MockUserRepository is a mock implementation of fulfillment.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*fulfillment.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, u *fulfillment.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockUserRepository) Stats(ctx context.Context, now time.Time) (fulfillment.UserStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(fulfillment.UserStats), args.Error(1)
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

// MockMessenger is a mock implementation of notification.Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb notification.Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, text, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditMessage(ctx context.Context, chatID, messageID int64, text string, kb notification.Keyboard) error {
	args := m.Called(ctx, chatID, messageID, text, kb)
	return args.Error(0)
}

func (m *MockMessenger) SendDocument(ctx context.Context, chatID int64, doc notification.Document, kb notification.Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, doc, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditCaption(ctx context.Context, chatID, messageID int64, caption string, kb notification.Keyboard) error {
	args := m.Called(ctx, chatID, messageID, caption, kb)
	return args.Error(0)
}

// MockRenderer is a mock implementation of the document renderer port
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, sheet fulfillment.OrderSheet) ([]byte, error) {
	args := m.Called(ctx, sheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockStore is a mock implementation of the document store port
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, orderID string, data []byte) (bool, string) {
	args := m.Called(ctx, orderID, data)
	return args.Bool(0), args.String(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// fakeCatalog serves a fixed product map
type fakeCatalog struct {
	products map[int64]fulfillment.Product
}

func (c *fakeCatalog) Fetch(context.Context) map[int64]fulfillment.Product {
	return c.products
}

// fakeDealers returns one verdict for everybody and records forced checks
type fakeDealers struct {
	verdict fulfillment.DealerVerdict
	forced  atomic.Int32
}

func (d *fakeDealers) Check(_ context.Context, _ int64, _ string, force bool) fulfillment.DealerVerdict {
	if force {
		d.forced.Add(1)
	}
	return d.verdict
}

// fakeLimiter is a scriptable OrderLimiter
type fakeLimiter struct {
	session    bool
	cooldown   int
	registered []int64
}

func (l *fakeLimiter) SessionActive(int64) bool {
	return l.session
}

func (l *fakeLimiter) CheckCooldown(int64) (bool, int) {
	return l.cooldown == 0, l.cooldown
}

func (l *fakeLimiter) RegisterOrder(userID int64) {
	l.registered = append(l.registered, userID)
}
