package customer

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/stretchr/testify/mock"
)

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

// fakeMessenger records deliveries and fails for the listed chats
type fakeMessenger struct {
	mu     sync.Mutex
	fail   map[int64]bool
	sentTo []int64
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, _ string, _ notification.Keyboard) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return 0, notification.ErrMessageNotFound
	}
	f.sentTo = append(f.sentTo, chatID)
	return int64(len(f.sentTo)), nil
}

func (f *fakeMessenger) EditMessage(context.Context, int64, int64, string, notification.Keyboard) error {
	return nil
}

func (f *fakeMessenger) SendDocument(context.Context, int64, notification.Document, notification.Keyboard) (int64, error) {
	return 0, nil
}

func (f *fakeMessenger) EditCaption(context.Context, int64, int64, string, notification.Keyboard) error {
	return nil
}

// fakeDealers returns one verdict and records forced checks
type fakeDealers struct {
	verdict fulfillment.DealerVerdict
	phones  []string
	forced  int
}

func (d *fakeDealers) Check(_ context.Context, _ int64, phone string, force bool) fulfillment.DealerVerdict {
	d.phones = append(d.phones, phone)
	if force {
		d.forced++
	}
	return d.verdict
}
