package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/erp/fulfillment/internal/application/checkout"
	"github.com/erp/fulfillment/internal/application/customer"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/metrics"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// updateTimeout bounds the processing of one update. It is detached from
// the webhook request so a slow render is not cut short by the platform.
const updateTimeout = 2 * time.Minute

// Callback data of the customer menus
const (
	callbackRegister   = "register"
	callbackToggleLang = "toggle_lang"
)

// ChatMessenger is the chat platform as seen by the webhook
type ChatMessenger interface {
	notification.Messenger
	SendReplyKeyboard(ctx context.Context, chatID int64, text string, kb notification.ReplyKeyboard) (int64, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// CustomerService is the customer registry
type CustomerService interface {
	Register(ctx context.Context, id customer.Identity) (*fulfillment.User, bool, error)
	Touch(ctx context.Context, userID int64) error
	SetLanguage(ctx context.Context, userID int64, locale fulfillment.Locale) (*fulfillment.User, error)
	CompleteProfile(ctx context.Context, userID int64, in customer.ProfileInput) (*fulfillment.User, fulfillment.DealerVerdict, error)
	Profile(ctx context.Context, userID int64) (*fulfillment.User, error)
	Stats(ctx context.Context, actorID int64) (fulfillment.UserStats, error)
	Broadcast(ctx context.Context, actorID int64, text string) (customer.BroadcastResult, error)
	SendDirect(ctx context.Context, actorID, targetID int64, text string) error
}

// CheckoutService runs preview and signed confirmation
type CheckoutService interface {
	Preview(ctx context.Context, userID int64, payload *checkout.Payload) (*checkout.Preview, error)
	Confirm(ctx context.Context, userID int64, signature string) (*checkout.Confirmation, error)
	HasPending(userID int64) bool
	Cancel(userID int64)
}

// ChatOrderService is the part of the order engine the chat uses
type ChatOrderService interface {
	Get(ctx context.Context, orderID string, actorID int64) (*fulfillment.SubOrder, error)
	Advance(ctx context.Context, orderID string, target fulfillment.Status, actorID int64) (*appfulfillment.AdvanceResult, error)
	Card(ctx context.Context, orderID string) (string, notification.Keyboard, error)
	CardFor(ctx context.Context, order *fulfillment.SubOrder) string
	ListForUser(ctx context.Context, userID int64) ([]fulfillment.SubOrder, error)
	Document(ctx context.Context, orderID string, requesterID int64) (notification.Document, error)
	ExportCSV(ctx context.Context, actorID int64) (notification.Document, error)
}

// SessionLimiter is the per-user message limiter and order session timer
type SessionLimiter interface {
	AllowMessage(userID int64) bool
	StartSession(userID int64)
	SessionActive(userID int64) bool
}

// DealerChecker answers whether a customer may order
type DealerChecker interface {
	Check(ctx context.Context, userID int64, phone string, force bool) fulfillment.DealerVerdict
}

// LimitRecorder counts refused requests
type LimitRecorder interface {
	RateLimited(kind string)
}

type noopLimitRecorder struct{}

func (noopLimitRecorder) RateLimited(string) {}

// WebhookDependencies wires the chat webhook. Metrics may be nil.
type WebhookDependencies struct {
	Customers CustomerService
	Checkout  CheckoutService
	Orders    ChatOrderService
	Messenger ChatMessenger
	Limiter   SessionLimiter
	Dealers   DealerChecker
	Metrics   LimitRecorder
	Roster    *fulfillment.Roster
	WebAppURL string
	Logger    *zap.Logger
}

// WebhookHandler receives chat updates and drives the bot conversation
type WebhookHandler struct {
	BaseHandler
	customers     CustomerService
	checkout      CheckoutService
	orders        ChatOrderService
	messenger     ChatMessenger
	limiter       SessionLimiter
	dealers       DealerChecker
	metrics       LimitRecorder
	roster        *fulfillment.Roster
	webAppURL     string
	registrations *registrations
	logger        *zap.Logger
	now           func() time.Time
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(deps WebhookDependencies) *WebhookHandler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var rec LimitRecorder = noopLimitRecorder{}
	if deps.Metrics != nil {
		rec = deps.Metrics
	}
	return &WebhookHandler{
		customers:     deps.Customers,
		checkout:      deps.Checkout,
		orders:        deps.Orders,
		messenger:     deps.Messenger,
		limiter:       deps.Limiter,
		dealers:       deps.Dealers,
		metrics:       rec,
		roster:        deps.Roster,
		webAppURL:     deps.WebAppURL,
		registrations: newRegistrations(),
		logger:        log,
		now:           time.Now,
	}
}

// Receive godoc
// POST /webhook/:secret
// Processing failures are answered with 200 so the platform does not
// redeliver an update that was already partly applied.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var upd Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		if middleware.IsBodyTooLarge(err) {
			// redelivery would hit the same cap, so the update is dropped
			h.logger.Warn("Dropped oversized update", zap.Int64("content_length", c.Request.ContentLength))
			c.Status(http.StatusOK)
			return
		}
		h.BadRequest(c, "malformed update")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), updateTimeout)
	defer cancel()
	h.HandleUpdate(ctx, &upd)
	c.Status(http.StatusOK)
}

// HandleUpdate dispatches one update
func (h *WebhookHandler) HandleUpdate(ctx context.Context, upd *Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while handling update",
				zap.Int64("update_id", upd.UpdateID),
				zap.Any("panic", r),
				zap.Stack("stacktrace"))
		}
	}()

	switch {
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

// OnSessionExpired replaces the order button with the main menu button once
// the order session timer fires
func (h *WebhookHandler) OnSessionExpired(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := h.customers.Profile(ctx, userID)
	if err != nil || !u.HasProfile() {
		return
	}
	t := textsFor(u.Language)
	verdict := h.dealers.Check(ctx, userID, u.PhoneDigits(), false)
	if _, err := h.messenger.SendReplyKeyboard(ctx, userID, t.menuRefresh, h.mainMenu(t, verdict.IsActive, false)); err != nil {
		h.logger.Warn("Failed to refresh menu", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *WebhookHandler) log(ctx context.Context) *logger.ContextLogger {
	return logger.WithLogger(ctx, h.logger)
}

// locale returns the customer's language, defaulting for unknown users
func (h *WebhookHandler) locale(ctx context.Context, userID int64) (*fulfillment.User, fulfillment.Locale) {
	u, err := h.customers.Profile(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.log(ctx).Warn("Failed to load profile", zap.Error(err))
		}
		return nil, fulfillment.DefaultLocale
	}
	return u, u.Language
}

func (h *WebhookHandler) send(ctx context.Context, chatID int64, text string, kb notification.Keyboard) {
	if _, err := h.messenger.SendMessage(ctx, chatID, text, kb); err != nil {
		h.log(ctx).Warn("Failed to send message", zap.Error(err))
	}
}

func (h *WebhookHandler) sendMenu(ctx context.Context, chatID int64, text string, kb notification.ReplyKeyboard) {
	if _, err := h.messenger.SendReplyKeyboard(ctx, chatID, text, kb); err != nil {
		h.log(ctx).Warn("Failed to send menu", zap.Error(err))
	}
}

func (h *WebhookHandler) sendDocument(ctx context.Context, chatID int64, doc notification.Document) {
	if _, err := h.messenger.SendDocument(ctx, chatID, doc, nil); err != nil {
		h.log(ctx).Warn("Failed to send document", zap.String("filename", doc.Filename), zap.Error(err))
	}
}

// mainMenu builds the reply keyboard. The order button opens the shop only
// while the order session is active.
func (h *WebhookHandler) mainMenu(t *chatTexts, canOrder, sessionActive bool) notification.ReplyKeyboard {
	if !canOrder {
		return notification.ReplyKeyboard{{{Text: t.settingsButton}}}
	}
	first := notification.ReplyButton{Text: t.mainMenuButton}
	if sessionActive {
		first = notification.ReplyButton{Text: t.orderButton, WebAppURL: h.webAppURL}
	}
	return notification.ReplyKeyboard{
		{first},
		{{Text: t.myOrdersButton}, {Text: t.settingsButton}},
	}
}

func welcomeKeyboard(t *chatTexts) notification.Keyboard {
	return notification.Keyboard{
		{{Text: t.registerButton, CallbackData: callbackRegister}},
		{{Text: t.langButton, CallbackData: callbackToggleLang}},
	}
}

// replyError turns a failed customer step into a localized message
func (h *WebhookHandler) replyError(ctx context.Context, chatID int64, t *chatTexts, err error) {
	if r, ok := checkout.AsRejection(err); ok {
		switch r.Reason {
		case checkout.ReasonCooldown:
			h.metrics.RateLimited(metrics.LimitCooldown)
		case checkout.ReasonSessionExpired:
			h.metrics.RateLimited(metrics.LimitSession)
		}
		h.log(ctx).Info("Checkout step refused", zap.Error(err))
		h.send(ctx, chatID, t.rejection(r), nil)
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Code == shared.CodeValidation {
		h.send(ctx, chatID, fmt.Sprintf(t.invalidPayload, html.EscapeString(de.Message)), nil)
		return
	}
	h.log(ctx).Error("Customer step failed", zap.Error(err))
	h.send(ctx, chatID, t.genericError, nil)
}

func (h *WebhookHandler) handleMessage(ctx context.Context, m *ChatMessage) {
	if m.From == nil || m.From.IsBot {
		return
	}
	userID := m.From.ID
	chatID := m.Chat.ID
	ctx = logger.WithChatID(logger.WithActorID(ctx, userID), chatID)

	if !h.limiter.AllowMessage(userID) {
		h.metrics.RateLimited(metrics.LimitMessage)
		_, locale := h.locale(ctx, userID)
		h.send(ctx, chatID, textsFor(locale).tooManyMessages, nil)
		return
	}

	text := strings.TrimSpace(m.Text)
	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, m, text)
		return
	}

	if err := h.customers.Touch(ctx, userID); err != nil {
		h.log(ctx).Warn("Failed to record activity", zap.Error(err))
	}

	if m.WebAppData != nil {
		h.handleCart(ctx, m)
		return
	}
	if draft, ok := h.registrations.get(userID, h.now()); ok {
		h.handleRegistration(ctx, m, draft)
		return
	}
	if text == "" {
		return
	}

	u, locale := h.locale(ctx, userID)
	t := textsFor(locale)
	switch text {
	case textsRU.mainMenuButton, textsUZ.mainMenuButton:
		h.handleStart(ctx, m)
		return
	case textsRU.orderButton, textsUZ.orderButton:
		if !h.limiter.SessionActive(userID) {
			h.metrics.RateLimited(metrics.LimitSession)
			h.sendMenu(ctx, chatID, t.sessionExpired, nil)
		}
		return
	case textsRU.myOrdersButton, textsUZ.myOrdersButton:
		h.handleMyOrders(ctx, chatID, userID, t, locale)
		return
	case textsRU.settingsButton, textsUZ.settingsButton:
		if u != nil {
			h.send(ctx, chatID, t.profile(u), notification.Keyboard{
				{{Text: t.langButton, CallbackData: callbackToggleLang}},
				{{Text: t.editProfile, CallbackData: callbackRegister}},
			})
		}
		return
	}

	if h.checkout.HasPending(userID) {
		h.handleSignature(ctx, chatID, userID, text, t)
	}
}

func commandArgs(text string) (string, string) {
	cmd, rest, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

func (h *WebhookHandler) handleCommand(ctx context.Context, m *ChatMessage, text string) {
	userID := m.From.ID
	chatID := m.Chat.ID
	cmd, args := commandArgs(text)

	if cmd == "/start" {
		h.handleStart(ctx, m)
		return
	}
	if err := h.customers.Touch(ctx, userID); err != nil {
		h.log(ctx).Warn("Failed to record activity", zap.Error(err))
	}
	_, locale := h.locale(ctx, userID)
	t := textsFor(locale)

	switch cmd {
	case "/my":
		h.handleMyOrders(ctx, chatID, userID, t, locale)
	case "/get_pdf":
		h.handleGetPDF(ctx, chatID, userID, args, t)
	case "/lang":
		if args == "" {
			h.send(ctx, chatID, adminLangUsage, nil)
			return
		}
		u, err := h.customers.SetLanguage(ctx, userID, fulfillment.ParseLocale(args))
		if err != nil {
			h.replyError(ctx, chatID, t, err)
			return
		}
		h.send(ctx, chatID, textsFor(u.Language).langChanged, nil)
	case "/cancel":
		h.checkout.Cancel(userID)
		h.registrations.finish(userID)
		h.sendMenu(ctx, chatID, t.menuRefresh, nil)
	case "/admin":
		if !h.roster.IsAdmin(userID) {
			h.send(ctx, chatID, adminDenied, nil)
			return
		}
		h.send(ctx, chatID, adminPanel(h.roster, userID), nil)
	case "/orders_export", "/users_stats", "/sendall", "/send":
		if !h.roster.IsSuperAdmin(userID) {
			return
		}
		h.handleAdminCommand(ctx, chatID, userID, cmd, args)
	}
}

func (h *WebhookHandler) handleStart(ctx context.Context, m *ChatMessage) {
	userID := m.From.ID
	chatID := m.Chat.ID

	u, created, err := h.customers.Register(ctx, customer.Identity{
		ID:        userID,
		Username:  m.From.Username,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
	})
	if err != nil {
		h.replyError(ctx, chatID, textsFor(fulfillment.DefaultLocale), err)
		return
	}
	if created {
		h.log(ctx).Info("New customer registered")
	}
	h.limiter.StartSession(userID)
	h.checkout.Cancel(userID)

	t := textsFor(u.Language)
	if !u.HasProfile() {
		h.send(ctx, chatID, t.welcome, welcomeKeyboard(t))
		return
	}

	verdict := h.dealers.Check(ctx, userID, u.PhoneDigits(), false)
	text := fmt.Sprintf(t.greeting, html.EscapeString(u.FullName)) + t.dealerWarning(verdict)
	h.sendMenu(ctx, chatID, text, h.mainMenu(t, verdict.IsActive, true))
}

func (h *WebhookHandler) handleMyOrders(ctx context.Context, chatID, userID int64, t *chatTexts, locale fulfillment.Locale) {
	orders, err := h.orders.ListForUser(ctx, userID)
	if err != nil {
		h.replyError(ctx, chatID, t, err)
		return
	}
	if len(orders) == 0 {
		h.send(ctx, chatID, t.noOrders, nil)
		return
	}
	h.send(ctx, chatID, t.orderList(orders, locale), nil)
}

func (h *WebhookHandler) handleGetPDF(ctx context.Context, chatID, userID int64, orderID string, t *chatTexts) {
	if orderID == "" {
		h.send(ctx, chatID, html.EscapeString(t.getPDFUsage), nil)
		return
	}
	doc, err := h.orders.Document(ctx, orderID, userID)
	switch {
	case err == nil:
		doc.Caption = fmt.Sprintf(t.pdfCaption, html.EscapeString(orderID))
		h.sendDocument(ctx, chatID, doc)
	case errors.Is(err, shared.ErrForbidden):
		// customers must not learn whether a foreign order exists
		h.send(ctx, chatID, t.orderNotFound, nil)
	case errors.Is(err, appfulfillment.ErrNoDocument):
		h.send(ctx, chatID, t.pdfUnavailable, nil)
	case errors.Is(err, shared.ErrNotFound):
		h.send(ctx, chatID, t.orderNotFound, nil)
	default:
		h.replyError(ctx, chatID, t, err)
	}
}

func (h *WebhookHandler) handleAdminCommand(ctx context.Context, chatID, actorID int64, cmd, args string) {
	var err error
	switch cmd {
	case "/orders_export":
		var doc notification.Document
		doc, err = h.orders.ExportCSV(ctx, actorID)
		if errors.Is(err, shared.ErrNotFound) {
			h.send(ctx, chatID, adminNoOrders, nil)
			return
		}
		if err == nil {
			doc.Caption = adminExport
			h.sendDocument(ctx, chatID, doc)
		}
	case "/users_stats":
		var stats fulfillment.UserStats
		stats, err = h.customers.Stats(ctx, actorID)
		if err == nil {
			h.send(ctx, chatID, fmt.Sprintf(adminStats, stats.Total, stats.Active30d, stats.New7d), nil)
		}
	case "/sendall":
		if args == "" {
			h.send(ctx, chatID, adminSendAllUsage, nil)
			return
		}
		var res customer.BroadcastResult
		res, err = h.customers.Broadcast(ctx, actorID, args)
		if err == nil {
			h.send(ctx, chatID, fmt.Sprintf(adminBroadcast, res.Delivered, res.Failed), nil)
		}
	case "/send":
		h.handleSendDirect(ctx, chatID, actorID, args)
	}
	if err != nil {
		h.log(ctx).Error("Admin command failed", zap.String("command", cmd), zap.Error(err))
		h.send(ctx, chatID, toastFailed, nil)
	}
}

// handleSendDirect parses "/send <user_id> <text>"
func (h *WebhookHandler) handleSendDirect(ctx context.Context, chatID, actorID int64, args string) {
	idArg, text := strings.TrimSpace(args), ""
	if i := strings.IndexFunc(idArg, unicode.IsSpace); i >= 0 {
		idArg, text = idArg[:i], strings.TrimSpace(idArg[i:])
	}
	if idArg == "" || text == "" {
		h.send(ctx, chatID, adminSendUsage, nil)
		return
	}
	targetID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		h.send(ctx, chatID, adminSendBadID, nil)
		return
	}
	if err := h.customers.SendDirect(ctx, actorID, targetID, text); err != nil {
		h.log(ctx).Warn("Direct message failed", zap.Int64("target_id", targetID), zap.Error(err))
		h.send(ctx, chatID, fmt.Sprintf(adminSendFailed, targetID), nil)
		return
	}
	h.send(ctx, chatID, fmt.Sprintf(adminSent, targetID), nil)
}

func (h *WebhookHandler) handleCart(ctx context.Context, m *ChatMessage) {
	userID := m.From.ID
	chatID := m.Chat.ID
	_, locale := h.locale(ctx, userID)
	t := textsFor(locale)

	payload, err := checkout.ValidatePayload([]byte(m.WebAppData.Data))
	if err != nil {
		h.log(ctx).Info("Rejected cart payload", zap.Error(err))
		h.replyError(ctx, chatID, t, err)
		return
	}
	preview, err := h.checkout.Preview(ctx, userID, payload)
	if err != nil {
		h.replyError(ctx, chatID, t, err)
		return
	}
	h.sendDocument(ctx, chatID, notification.Document{
		Filename: "order_preview_" + preview.ID + ".pdf",
		Data:     preview.Document,
		Caption:  t.preview(preview.Total, preview.ItemCount()),
	})
}

func (h *WebhookHandler) handleSignature(ctx context.Context, chatID, userID int64, signature string, t *chatTexts) {
	conf, err := h.checkout.Confirm(ctx, userID, signature)
	if err != nil {
		h.replyError(ctx, chatID, t, err)
		return
	}
	if len(conf.Warnings) > 0 {
		h.log(ctx).Warn("Order confirmed with warnings",
			zap.String("base_order_id", conf.BaseOrderID),
			zap.Strings("warnings", conf.Warnings))
	}
	h.send(ctx, chatID, t.confirmation(conf), nil)
}

func (h *WebhookHandler) handleRegistration(ctx context.Context, m *ChatMessage, draft registrationDraft) {
	userID := m.From.ID
	chatID := m.Chat.ID
	_, locale := h.locale(ctx, userID)
	t := textsFor(locale)
	now := h.now()
	text := strings.TrimSpace(m.Text)

	switch draft.step {
	case stepPhone:
		if m.Contact == nil || m.Contact.PhoneNumber == "" {
			h.send(ctx, chatID, t.usePhoneButton, nil)
			return
		}
		h.registrations.update(userID, now, func(d *registrationDraft) {
			d.phone = m.Contact.PhoneNumber
			d.step = stepCity
		})
		h.sendMenu(ctx, chatID, t.askCity, nil)
	case stepCity:
		if text == "" {
			h.send(ctx, chatID, t.cityRequired, nil)
			return
		}
		h.registrations.update(userID, now, func(d *registrationDraft) {
			d.city = text
			d.step = stepLocation
		})
		h.sendMenu(ctx, chatID, t.askLocation, notification.ReplyKeyboard{{{Text: t.locationButton, RequestLocation: true}}})
	case stepLocation:
		if m.Location == nil {
			h.send(ctx, chatID, t.useLocationBtn, nil)
			return
		}
		lat, lon := m.Location.Latitude, m.Location.Longitude
		h.registrations.update(userID, now, func(d *registrationDraft) {
			d.latitude, d.longitude = &lat, &lon
			d.step = stepFullName
		})
		h.sendMenu(ctx, chatID, t.askFullName, nil)
	case stepFullName:
		if utf8.RuneCountInString(text) < 2 {
			h.send(ctx, chatID, t.nameTooShort, nil)
			return
		}
		u, verdict, err := h.customers.CompleteProfile(ctx, userID, customer.ProfileInput{
			Phone:     draft.phone,
			City:      draft.city,
			FullName:  text,
			Latitude:  draft.latitude,
			Longitude: draft.longitude,
		})
		if err != nil {
			h.replyError(ctx, chatID, t, err)
			return
		}
		h.registrations.finish(userID)
		msg := fmt.Sprintf(t.registrationDone,
			html.EscapeString(u.FullName), html.EscapeString(u.Phone), html.EscapeString(u.City)) + t.dealerWarning(verdict)
		h.sendMenu(ctx, chatID, msg, h.mainMenu(t, verdict.IsActive, h.limiter.SessionActive(userID)))
	}
}

func (h *WebhookHandler) answer(ctx context.Context, cb *CallbackQuery, text string, alert bool) {
	if err := h.messenger.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
		h.log(ctx).Debug("Failed to answer callback", zap.Error(err))
	}
}

func (h *WebhookHandler) handleCallback(ctx context.Context, cb *CallbackQuery) {
	ctx = logger.WithActorID(ctx, cb.From.ID)
	if cb.Message != nil {
		ctx = logger.WithChatID(ctx, cb.Message.Chat.ID)
	}

	switch cb.Data {
	case callbackRegister:
		h.startRegistration(ctx, cb)
		return
	case callbackToggleLang:
		h.toggleLanguage(ctx, cb)
		return
	}

	action, ok := appfulfillment.ParseCallback(cb.Data)
	if !ok || cb.Message == nil {
		h.answer(ctx, cb, "", false)
		return
	}
	switch action.Kind {
	case appfulfillment.CallbackAsk:
		h.askConfirmation(ctx, cb, action)
	case appfulfillment.CallbackRestore:
		text, kb, err := h.orders.Card(ctx, action.OrderID)
		if err != nil {
			h.answerError(ctx, cb, err)
			return
		}
		h.editCard(ctx, cb.Message, text, kb)
		h.answer(ctx, cb, "", false)
	case appfulfillment.CallbackAdvance:
		h.advance(ctx, cb, action)
	}
}

func (h *WebhookHandler) startRegistration(ctx context.Context, cb *CallbackQuery) {
	userID := cb.From.ID
	_, locale := h.locale(ctx, userID)
	t := textsFor(locale)
	h.registrations.start(userID, h.now())
	h.sendMenu(ctx, userID, t.askPhone, notification.ReplyKeyboard{{{Text: t.phoneButton, RequestContact: true}}})
	h.answer(ctx, cb, "", false)
}

func (h *WebhookHandler) toggleLanguage(ctx context.Context, cb *CallbackQuery) {
	userID := cb.From.ID
	_, current := h.locale(ctx, userID)
	next := fulfillment.LocaleUZ
	if current == fulfillment.LocaleUZ {
		next = fulfillment.LocaleRU
	}
	u, err := h.customers.SetLanguage(ctx, userID, next)
	if err != nil {
		h.answerError(ctx, cb, err)
		return
	}
	t := textsFor(u.Language)
	h.answer(ctx, cb, t.langChanged, true)

	if !u.HasProfile() {
		if cb.Message != nil {
			h.editCard(ctx, cb.Message, t.welcome, welcomeKeyboard(t))
		}
		return
	}
	verdict := h.dealers.Check(ctx, userID, u.PhoneDigits(), false)
	h.sendMenu(ctx, userID, t.profile(u), h.mainMenu(t, verdict.IsActive, h.limiter.SessionActive(userID)))
}

// askConfirmation shows the yes/no step before an approval or rejection
func (h *WebhookHandler) askConfirmation(ctx context.Context, cb *CallbackQuery, action appfulfillment.Callback) {
	if err := h.roster.Authorize(cb.From.ID, action.Target, fulfillment.CategoryNone); err != nil {
		h.answerError(ctx, cb, err)
		return
	}
	order, err := h.orders.Get(ctx, action.OrderID, cb.From.ID)
	if err != nil {
		h.answerError(ctx, cb, err)
		return
	}
	if order.Status != fulfillment.StatusPending {
		h.answer(ctx, cb, toastStale, true)
		return
	}
	text := h.orders.CardFor(ctx, order) + "\n\n" + appfulfillment.ConfirmPrompt(action.Target)
	h.editCard(ctx, cb.Message, text, appfulfillment.ConfirmKeyboard(action.Target, order.ID))
	h.answer(ctx, cb, "", false)
}

func (h *WebhookHandler) advance(ctx context.Context, cb *CallbackQuery, action appfulfillment.Callback) {
	res, err := h.orders.Advance(ctx, action.OrderID, action.Target, cb.From.ID)
	if err != nil {
		h.answerError(ctx, cb, err)
		return
	}
	if len(res.Warnings) > 0 {
		h.log(ctx).Warn("Transition applied with warnings",
			zap.String("order_id", res.Order.ID),
			zap.Strings("warnings", res.Warnings))
	}
	h.editCard(ctx, cb.Message, h.orders.CardFor(ctx, res.Order), appfulfillment.ActionKeyboard(res.Order))
	switch {
	case res.Changed && len(res.Warnings) > 0:
		h.answer(ctx, cb, partialToast(res.Warnings), true)
	case res.Changed:
		h.answer(ctx, cb, toastDone, false)
	default:
		h.answer(ctx, cb, toastUnchanged, false)
	}
}

// answerError reports a refused button press as a toast
func (h *WebhookHandler) answerError(ctx context.Context, cb *CallbackQuery, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		h.log(ctx).Info("Button press denied", zap.Error(err))
		h.answer(ctx, cb, toastForbidden, true)
	case errors.Is(err, shared.ErrInvalidState), errors.Is(err, shared.ErrConcurrencyConflict):
		h.answer(ctx, cb, toastStale, true)
	case errors.Is(err, shared.ErrNotFound):
		h.answer(ctx, cb, toastNotFound, true)
	default:
		h.log(ctx).Error("Button press failed", zap.Error(err))
		h.answer(ctx, cb, toastFailed, true)
	}
}

// editCard rewrites the message the button belongs to. Cards posted with a
// document carry their text in the caption.
func (h *WebhookHandler) editCard(ctx context.Context, m *ChatMessage, text string, kb notification.Keyboard) {
	var err error
	if m.Document != nil {
		err = h.messenger.EditCaption(ctx, m.Chat.ID, m.MessageID, text, kb)
	} else {
		err = h.messenger.EditMessage(ctx, m.Chat.ID, m.MessageID, text, kb)
	}
	if err != nil {
		h.log(ctx).Warn("Failed to update card", zap.Int64("message_id", m.MessageID), zap.Error(err))
	}
}
