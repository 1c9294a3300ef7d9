package handler

import (
	"context"

	"github.com/erp/fulfillment/internal/application/checkout"
	"github.com/erp/fulfillment/internal/application/customer"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/stretchr/testify/mock"
)

// MockCustomers is a mock implementation of CustomerService
type MockCustomers struct {
	mock.Mock
}

func (m *MockCustomers) Register(ctx context.Context, id customer.Identity) (*fulfillment.User, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*fulfillment.User), args.Bool(1), args.Error(2)
}

func (m *MockCustomers) Touch(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockCustomers) SetLanguage(ctx context.Context, userID int64, locale fulfillment.Locale) (*fulfillment.User, error) {
	args := m.Called(ctx, userID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.User), args.Error(1)
}

func (m *MockCustomers) CompleteProfile(ctx context.Context, userID int64, in customer.ProfileInput) (*fulfillment.User, fulfillment.DealerVerdict, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, fulfillment.DealerVerdict{}, args.Error(2)
	}
	return args.Get(0).(*fulfillment.User), args.Get(1).(fulfillment.DealerVerdict), args.Error(2)
}

func (m *MockCustomers) Profile(ctx context.Context, userID int64) (*fulfillment.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.User), args.Error(1)
}

func (m *MockCustomers) Stats(ctx context.Context, actorID int64) (fulfillment.UserStats, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(fulfillment.UserStats), args.Error(1)
}

func (m *MockCustomers) Broadcast(ctx context.Context, actorID int64, text string) (customer.BroadcastResult, error) {
	args := m.Called(ctx, actorID, text)
	return args.Get(0).(customer.BroadcastResult), args.Error(1)
}

// MockCheckout is a mock implementation of CheckoutService
type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) Preview(ctx context.Context, userID int64, payload *checkout.Payload) (*checkout.Preview, error) {
	args := m.Called(ctx, userID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Preview), args.Error(1)
}

func (m *MockCheckout) Confirm(ctx context.Context, userID int64, signature string) (*checkout.Confirmation, error) {
	args := m.Called(ctx, userID, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Confirmation), args.Error(1)
}

func (m *MockCheckout) HasPending(userID int64) bool {
	return m.Called(userID).Bool(0)
}

func (m *MockCheckout) Cancel(userID int64) {
	m.Called(userID)
}

// MockOrders is a mock implementation of ChatOrderService and OrderService
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Get(ctx context.Context, orderID string, actorID int64) (*fulfillment.SubOrder, error) {
	args := m.Called(ctx, orderID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.SubOrder), args.Error(1)
}

func (m *MockOrders) Advance(ctx context.Context, orderID string, target fulfillment.Status, actorID int64) (*appfulfillment.AdvanceResult, error) {
	args := m.Called(ctx, orderID, target, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfulfillment.AdvanceResult), args.Error(1)
}

func (m *MockOrders) Card(ctx context.Context, orderID string) (string, notification.Keyboard, error) {
	args := m.Called(ctx, orderID)
	kb, _ := args.Get(1).(notification.Keyboard)
	return args.String(0), kb, args.Error(2)
}

func (m *MockOrders) CardFor(ctx context.Context, order *fulfillment.SubOrder) string {
	return m.Called(ctx, order).String(0)
}

func (m *MockOrders) ListForUser(ctx context.Context, userID int64) ([]fulfillment.SubOrder, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]fulfillment.SubOrder)
	return orders, args.Error(1)
}

func (m *MockOrders) Document(ctx context.Context, orderID string, requesterID int64) (notification.Document, error) {
	args := m.Called(ctx, orderID, requesterID)
	return args.Get(0).(notification.Document), args.Error(1)
}

func (m *MockOrders) ExportCSV(ctx context.Context, actorID int64) (notification.Document, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).(notification.Document), args.Error(1)
}

func (m *MockOrders) Summary(ctx context.Context, baseOrderID string, locale fulfillment.Locale, actorID int64) (string, error) {
	args := m.Called(ctx, baseOrderID, locale, actorID)
	return args.String(0), args.Error(1)
}

// MockMessenger is a mock implementation of ChatMessenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, chatID int64, text string, kb notification.Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, text, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditMessage(ctx context.Context, chatID, messageID int64, text string, kb notification.Keyboard) error {
	return m.Called(ctx, chatID, messageID, text, kb).Error(0)
}

func (m *MockMessenger) SendDocument(ctx context.Context, chatID int64, doc notification.Document, kb notification.Keyboard) (int64, error) {
	args := m.Called(ctx, chatID, doc, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditCaption(ctx context.Context, chatID, messageID int64, caption string, kb notification.Keyboard) error {
	return m.Called(ctx, chatID, messageID, caption, kb).Error(0)
}

func (m *MockMessenger) SendReplyKeyboard(ctx context.Context, chatID int64, text string, kb notification.ReplyKeyboard) (int64, error) {
	args := m.Called(ctx, chatID, text, kb)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return m.Called(ctx, callbackID, text, alert).Error(0)
}

// MockLimiter is a mock implementation of SessionLimiter
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) AllowMessage(userID int64) bool {
	return m.Called(userID).Bool(0)
}

func (m *MockLimiter) StartSession(userID int64) {
	m.Called(userID)
}

func (m *MockLimiter) SessionActive(userID int64) bool {
	return m.Called(userID).Bool(0)
}

// MockDealers is a mock implementation of DealerChecker
type MockDealers struct {
	mock.Mock
}

func (m *MockDealers) Check(ctx context.Context, userID int64, phone string, force bool) fulfillment.DealerVerdict {
	return m.Called(ctx, userID, phone, force).Get(0).(fulfillment.DealerVerdict)
}

// recordingLimits counts refusals per kind
type recordingLimits struct {
	kinds []string
}

func (r *recordingLimits) RateLimited(kind string) {
	r.kinds = append(r.kinds, kind)
}

func (m *MockCustomers) SendDirect(ctx context.Context, actorID, targetID int64, text string) error {
	args := m.Called(ctx, actorID, targetID, text)
	return args.Error(0)
}
