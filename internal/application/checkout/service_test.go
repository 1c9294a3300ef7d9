package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	customerID  = int64(501234)
	adminChatID = int64(-1001234567890)
	testBaseID  = "202403151030001234"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type checkoutFixture struct {
	service   *Service
	orders    *MockSubOrderRepository
	users     *MockUserRepository
	notes     *MockNotificationRepository
	messenger *MockMessenger
	renderer  *MockRenderer
	store     *MockStore
	events    *MockEventPublisher
	catalog   *fakeCatalog
	dealers   *fakeDealers
	limiter   *fakeLimiter
}

func newFixture() *checkoutFixture {
	f := &checkoutFixture{
		orders:    new(MockSubOrderRepository),
		users:     new(MockUserRepository),
		notes:     new(MockNotificationRepository),
		messenger: new(MockMessenger),
		renderer:  new(MockRenderer),
		store:     new(MockStore),
		events:    new(MockEventPublisher),
		catalog: &fakeCatalog{products: map[int64]fulfillment.Product{
			10001: {ID: 10001, Name: "Soap", Price: decimal.NewFromInt(1000)},
			60001: {ID: 60001, Name: "Acid", Price: decimal.NewFromInt(2000)},
			60002: {ID: 60002, Name: "Alkali", Price: decimal.NewFromInt(500)},
			90001: {ID: 90001, Name: "Gift card", Price: decimal.NewFromInt(100)},
		}},
		dealers: &fakeDealers{verdict: fulfillment.DealerVerdict{IsActive: true, Status: "active"}},
		limiter: &fakeLimiter{session: true},
	}
	f.service = NewService(Dependencies{
		Users:       f.users,
		Orders:      f.orders,
		Catalog:     f.catalog,
		Dealers:     f.dealers,
		Limiter:     f.limiter,
		Documents:   appfulfillment.NewDocuments(f.renderer, f.store, nil, nil),
		Aggregator:  notification.NewAggregator(f.orders, f.notes, f.messenger, nil),
		Messenger:   f.messenger,
		Events:      f.events,
		AdminChatID: adminChatID,
	})
	f.service.now = func() time.Time { return testNow }
	return f
}

func testCustomer() *fulfillment.User {
	return &fulfillment.User{
		ID:       customerID,
		Username: "ali",
		Language: fulfillment.LocaleRU,
		Phone:    "+998 90 123-45-67",
		City:     "Tashkent",
		FullName: "Ali Valiyev",
	}
}

func cart(lines ...[2]int64) *Payload {
	p := &Payload{}
	for _, l := range lines {
		p.Items = append(p.Items, PayloadItem{ID: l[0], Qty: l[1]})
	}
	return p
}

func requireRejection(t *testing.T, err error, reason Reason) *Rejection {
	t.Helper()
	require.Error(t, err)
	r, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, reason, r.Reason)
	return r
}

// preview stores a pending preview for the spec cart
func (f *checkoutFixture) preview(t *testing.T, p *Payload) *Preview {
	t.Helper()
	f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)
	f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	preview, err := f.service.Preview(context.Background(), customerID, p)
	require.NoError(t, err)
	return preview
}

// ============ Preview Tests ============

func TestService_Preview_Success(t *testing.T) {
	f := newFixture()

	preview := f.preview(t, cart([2]int64{10001, 2}, [2]int64{60001, 1}))

	assert.Equal(t, "PREVIEW_"+testBaseID, preview.ID)
	assert.True(t, preview.Total.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, 2, preview.ItemCount())
	assert.Equal(t, []byte("%PDF"), preview.Document)
	require.Len(t, preview.Items, 2)
	assert.Equal(t, "Soap", preview.Items[0].Name)
	assert.True(t, preview.Items[0].Subtotal().Equal(decimal.NewFromInt(2000)))

	assert.True(t, f.service.HasPending(customerID))
	assert.Equal(t, int32(1), f.dealers.forced.Load(), "preview must bypass the dealer cache")

	f.renderer.AssertCalled(t, "Render", mock.Anything, mock.MatchedBy(func(s fulfillment.OrderSheet) bool {
		return s.Category == fulfillment.CategoryNone && !s.Approved && s.ClientName == "Ali Valiyev"
	}))
}

func TestService_Preview_SingleCategoryDraftNamesCategory(t *testing.T) {
	f := newFixture()

	f.preview(t, cart([2]int64{60001, 1}, [2]int64{60002, 4}))

	f.renderer.AssertCalled(t, "Render", mock.Anything, mock.MatchedBy(func(s fulfillment.OrderSheet) bool {
		return s.Category == fulfillment.CategoryChemicals
	}))
}

func TestService_Preview_Gates(t *testing.T) {
	t.Run("session expired", func(t *testing.T) {
		f := newFixture()
		f.limiter.session = false

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		requireRejection(t, err, ReasonSessionExpired)
		f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newFixture()
		f.users.On("FindByID", mock.Anything, customerID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		requireRejection(t, err, ReasonProfileIncomplete)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("incomplete profile", func(t *testing.T) {
		f := newFixture()
		u := testCustomer()
		u.FullName = ""
		f.users.On("FindByID", mock.Anything, customerID).Return(u, nil)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		requireRejection(t, err, ReasonProfileIncomplete)
	})

	t.Run("user store failure", func(t *testing.T) {
		f := newFixture()
		f.users.On("FindByID", mock.Anything, customerID).Return(nil, shared.ErrPersistence)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		assert.ErrorIs(t, err, shared.ErrPersistence)
		_, ok := AsRejection(err)
		assert.False(t, ok)
	})

	t.Run("inactive dealer", func(t *testing.T) {
		f := newFixture()
		f.dealers.verdict = fulfillment.DealerVerdict{IsActive: false, Status: "blocked"}
		f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		r := requireRejection(t, err, ReasonNotDealer)
		assert.Equal(t, "blocked", r.Status)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("cooldown", func(t *testing.T) {
		f := newFixture()
		f.limiter.cooldown = 42
		f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		r := requireRejection(t, err, ReasonCooldown)
		assert.Equal(t, 42, r.Seconds)
		assert.ErrorIs(t, err, shared.ErrRateLimited)
	})

	t.Run("empty catalog", func(t *testing.T) {
		f := newFixture()
		f.catalog.products = nil
		f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

		requireRejection(t, err, ReasonCatalogUnavailable)
		assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture()
		f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)

		_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}, [2]int64{10999, 1}))

		r := requireRejection(t, err, ReasonUnknownProduct)
		assert.Equal(t, int64(10999), r.ProductID)
		assert.False(t, f.service.HasPending(customerID))
	})
}

func TestService_Preview_RenderFailure(t *testing.T) {
	f := newFixture()
	f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)
	f.renderer.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("chrome crashed"))

	_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{10001, 1}))

	assert.ErrorIs(t, err, shared.ErrUpstreamUnavailable)
	assert.False(t, f.service.HasPending(customerID))
}

func TestService_Preview_ExpiresAfterTTL(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 1}))

	f.service.now = func() time.Time { return testNow.Add(DefaultPreviewTTL + time.Second) }

	assert.False(t, f.service.HasPending(customerID))
}

func TestService_Cancel(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 1}))

	f.service.Cancel(customerID)

	assert.False(t, f.service.HasPending(customerID))
}

// ============ Confirm Tests ============

// expectFanOut stubs every downstream step of a successful confirmation
func (f *checkoutFixture) expectFanOut() {
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(true, "https://cdn.example.com/order.pdf")
	f.orders.On("SaveDocuments", mock.Anything, mock.Anything).Return(nil)
	f.messenger.On("SendDocument", mock.Anything, adminChatID, mock.Anything, mock.Anything).Return(int64(900), nil)
	f.notes.On("FindByBaseID", mock.Anything, testBaseID).Return(nil, shared.ErrNotFound)
	f.messenger.On("SendMessage", mock.Anything, customerID, mock.Anything, mock.Anything).Return(int64(77), nil)
	f.notes.On("Upsert", mock.Anything, mock.Anything).Return(nil)
}

func (f *checkoutFixture) createdOrders() []*fulfillment.SubOrder {
	for _, call := range f.orders.Calls {
		if call.Method != "Create" {
			continue
		}
		var out []*fulfillment.SubOrder
		for _, arg := range call.Arguments[1:] {
			out = append(out, arg.([]*fulfillment.SubOrder)...)
		}
		return out
	}
	return nil
}

func TestService_Confirm_SplitsByCategory(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 2}, [2]int64{60001, 1}))
	f.expectFanOut()
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return([]fulfillment.SubOrder{}, nil).Maybe()

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")
	require.NoError(t, err)

	assert.Equal(t, testBaseID, conf.BaseOrderID)
	assert.True(t, conf.Total.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, 2, conf.ItemCount)
	assert.Empty(t, conf.Dropped)
	assert.Empty(t, conf.Warnings)

	require.Len(t, conf.Orders, 2)
	chem, clean := conf.Orders[0], conf.Orders[1]
	assert.Equal(t, testBaseID+"_1", chem.ID)
	assert.Equal(t, fulfillment.CategoryChemicals, chem.Category)
	assert.True(t, chem.Total.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, testBaseID+"_2", clean.ID)
	assert.Equal(t, fulfillment.CategoryCleaning, clean.Category)
	assert.True(t, clean.Total.Equal(decimal.NewFromInt(2000)))
	for _, o := range conf.Orders {
		assert.Equal(t, fulfillment.StatusPending, o.Status)
		assert.Equal(t, testBaseID, o.BaseOrderID)
		assert.Equal(t, "https://cdn.example.com/order.pdf", o.DocumentURL)
		assert.Empty(t, o.GetDomainEvents(), "events are drained after publishing")
	}

	assert.Len(t, f.createdOrders(), 2, "all parts are stored together")
	assert.Equal(t, []int64{customerID}, f.limiter.registered)
	assert.False(t, f.service.HasPending(customerID))
	f.messenger.AssertNumberOfCalls(t, "SendDocument", 2)
	f.events.AssertNumberOfCalls(t, "Publish", 1)
}

func TestService_Confirm_PushesClientSummary(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 2}, [2]int64{60001, 1}))

	soap := fulfillment.NewOrderItem(f.catalog.products[10001], 2)
	acid := fulfillment.NewOrderItem(f.catalog.products[60001], 1)
	chem, err := fulfillment.NewSubOrder(testBaseID+"_1", testBaseID, customerID, "Ali Valiyev", fulfillment.CategoryChemicals, []fulfillment.OrderItem{acid}, testNow)
	require.NoError(t, err)
	clean, err := fulfillment.NewSubOrder(testBaseID+"_2", testBaseID, customerID, "Ali Valiyev", fulfillment.CategoryCleaning, []fulfillment.OrderItem{soap}, testNow)
	require.NoError(t, err)

	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return([]fulfillment.SubOrder{*chem, *clean}, nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(false, "")
	f.messenger.On("SendDocument", mock.Anything, adminChatID, mock.Anything, mock.Anything).Return(int64(900), nil)
	f.notes.On("FindByBaseID", mock.Anything, testBaseID).Return(nil, shared.ErrNotFound)
	f.messenger.On("SendMessage", mock.Anything, customerID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "📦 Всего товаров: 2") && strings.Contains(text, "💰 Общая сумма: 4 000 so'm")
	}), mock.Anything).Return(int64(77), nil)
	f.notes.On("Upsert", mock.Anything, mock.MatchedBy(func(n *fulfillment.ClientNotification) bool {
		return n.BaseOrderID == testBaseID && n.UserID == customerID && n.MessageID == 77
	})).Return(nil)

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")
	require.NoError(t, err)

	assert.Empty(t, conf.Warnings)
	f.orders.AssertNotCalled(t, "SaveDocuments", mock.Anything, mock.Anything)
	f.messenger.AssertCalled(t, "SendMessage", mock.Anything, customerID, mock.Anything, mock.Anything)
	f.notes.AssertExpectations(t)
}

func TestService_Confirm_SignatureIsCaseAndSpaceInsensitive(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{60001, 1}))
	f.expectFanOut()
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return([]fulfillment.SubOrder{}, nil)

	conf, err := f.service.Confirm(context.Background(), customerID, "  ali   VALIYEV ")
	require.NoError(t, err)

	require.Len(t, conf.Orders, 1)
	assert.Equal(t, testBaseID+"_1", conf.Orders[0].ID)
	assert.Equal(t, fulfillment.CategoryChemicals, conf.Orders[0].Category)
	assert.Equal(t, "Ali Valiyev", conf.SignedAs)
}

func TestService_Confirm_Refusals(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")

		requireRejection(t, err, ReasonNoPendingOrder)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty signature", func(t *testing.T) {
		f := newFixture()
		f.preview(t, cart([2]int64{10001, 1}))

		_, err := f.service.Confirm(context.Background(), customerID, "  \n ")

		requireRejection(t, err, ReasonEmptySignature)
		assert.True(t, f.service.HasPending(customerID))
	})

	t.Run("mismatched signature", func(t *testing.T) {
		f := newFixture()
		f.preview(t, cart([2]int64{10001, 1}))

		_, err := f.service.Confirm(context.Background(), customerID, "Vali Aliyev")

		r := requireRejection(t, err, ReasonSignatureMismatch)
		assert.Equal(t, "Ali Valiyev", r.Expected)
		assert.True(t, f.service.HasPending(customerID), "the customer may sign again")
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("only uncategorized items", func(t *testing.T) {
		f := newFixture()
		f.preview(t, cart([2]int64{90001, 1}))

		_, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")

		requireRejection(t, err, ReasonNothingToOrder)
	})
}

func TestService_Confirm_DropsUncategorizedItems(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 1}, [2]int64{90001, 3}))
	f.expectFanOut()
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return([]fulfillment.SubOrder{}, nil)

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")
	require.NoError(t, err)

	assert.Equal(t, []int64{90001}, conf.Dropped)
	require.Len(t, conf.Orders, 1)
	assert.Equal(t, fulfillment.CategoryCleaning, conf.Orders[0].Category)
	assert.True(t, conf.Total.Equal(decimal.NewFromInt(1000)))
}

func TestService_Confirm_CreateFailureKeepsPreview(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 2}, [2]int64{60001, 1}))
	f.orders.On("Create", mock.Anything, mock.Anything).Return(shared.NewPersistenceError("insert failed", errors.New("deadlock")))

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")

	assert.Nil(t, conf)
	assert.ErrorIs(t, err, shared.ErrPersistence)
	assert.Empty(t, f.limiter.registered)
	assert.True(t, f.service.HasPending(customerID))
	f.messenger.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_Confirm_DownstreamFailuresAreWarnings(t *testing.T) {
	f := newFixture()
	f.preview(t, cart([2]int64{10001, 2}, [2]int64{60001, 1}))
	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(false, "")
	f.messenger.On("SendDocument", mock.Anything, adminChatID, mock.Anything, mock.Anything).Return(int64(0), errors.New("chat not found"))
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return(nil, shared.ErrPersistence)

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{WarningEvents, WarningAdminCard, WarningClientSummary}, conf.Warnings)
	assert.Equal(t, []int64{customerID}, f.limiter.registered)
	assert.False(t, f.service.HasPending(customerID))
}

func TestService_Confirm_AdminCardWithoutDocument(t *testing.T) {
	f := newFixture()
	f.users.On("FindByID", mock.Anything, customerID).Return(testCustomer(), nil)
	// the preview renders, the sub-order draft does not
	f.renderer.On("Render", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil).Once()
	f.renderer.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	_, err := f.service.Preview(context.Background(), customerID, cart([2]int64{60001, 1}))
	require.NoError(t, err)

	f.orders.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(false, "")
	f.messenger.On("SendMessage", mock.Anything, adminChatID, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Новый заказ №"+testBaseID+"_1")
	}), mock.Anything).Return(int64(901), nil)
	f.orders.On("FindByBaseID", mock.Anything, testBaseID).Return([]fulfillment.SubOrder{}, nil)

	conf, err := f.service.Confirm(context.Background(), customerID, "Ali Valiyev")
	require.NoError(t, err)

	assert.Equal(t, []string{WarningDocument}, conf.Warnings)
	f.messenger.AssertNotCalled(t, "SendDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.messenger.AssertCalled(t, "SendMessage", mock.Anything, adminChatID, mock.Anything, mock.Anything)
}
