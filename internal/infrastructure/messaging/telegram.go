// Package messaging implements the chat platform transport over the Telegram
// Bot API.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/application/notification"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultAPIURL   = "https://api.telegram.org"
	maxResponseSize = 4 << 20
	maxRetries      = 3
	// globalRate is the platform-wide outgoing message ceiling of one bot
	globalRate = 30
	// maxChatLimiters caps the per-chat limiter table before it is reset
	maxChatLimiters = 10000
	parseModeHTML   = "HTML"
)

// APIError is a refused Bot API call
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("telegram: %d %s (retry after %ds)", e.Code, e.Description, e.RetryAfter)
	}
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

func (e *APIError) notModified() bool {
	return strings.Contains(e.Description, "message is not modified")
}

func (e *APIError) messageGone() bool {
	return strings.Contains(e.Description, "message to edit not found") ||
		strings.Contains(e.Description, "MESSAGE_ID_INVALID")
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

type inlineButton struct {
	Text         string  `json:"text"`
	CallbackData string  `json:"callback_data,omitempty"`
	URL          string  `json:"url,omitempty"`
	WebApp       *webApp `json:"web_app,omitempty"`
}

type webApp struct {
	URL string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func markup(kb notification.Keyboard) *inlineKeyboard {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]inlineButton, 0, len(row))
		for _, b := range row {
			btn := inlineButton{Text: b.Text, CallbackData: b.CallbackData, URL: b.URL}
			if b.WebAppURL != "" {
				btn.WebApp = &webApp{URL: b.WebAppURL}
			}
			buttons = append(buttons, btn)
		}
		rows = append(rows, buttons)
	}
	return &inlineKeyboard{InlineKeyboard: rows}
}

type replyButton struct {
	Text            string  `json:"text"`
	RequestContact  bool    `json:"request_contact,omitempty"`
	RequestLocation bool    `json:"request_location,omitempty"`
	WebApp          *webApp `json:"web_app,omitempty"`
}

type replyKeyboard struct {
	Keyboard       [][]replyButton `json:"keyboard"`
	ResizeKeyboard bool            `json:"resize_keyboard"`
}

type removeKeyboard struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

func replyMarkup(kb notification.ReplyKeyboard) any {
	if len(kb) == 0 {
		return removeKeyboard{RemoveKeyboard: true}
	}
	rows := make([][]replyButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]replyButton, 0, len(row))
		for _, b := range row {
			btn := replyButton{Text: b.Text, RequestContact: b.RequestContact, RequestLocation: b.RequestLocation}
			if b.WebAppURL != "" {
				btn.WebApp = &webApp{URL: b.WebAppURL}
			}
			buttons = append(buttons, btn)
		}
		rows = append(rows, buttons)
	}
	return replyKeyboard{Keyboard: rows, ResizeKeyboard: true}
}

// Options configures a TelegramClient
type Options struct {
	APIURL  string
	Token   string
	Timeout time.Duration
	// SendRate is messages per second per chat
	SendRate  float64
	SendBurst int
}

// TelegramClient talks to the Bot API. Outgoing calls are paced per chat and
// globally, and a 429 is retried after the advertised delay.
type TelegramClient struct {
	base      string
	client    *http.Client
	chatRate  rate.Limit
	chatBurst int
	global    *rate.Limiter
	mu        sync.Mutex
	chats     map[int64]*rate.Limiter
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewTelegramClient creates a Bot API client
func NewTelegramClient(opts Options, logger *zap.Logger) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sendRate := rate.Limit(opts.SendRate)
	if opts.SendRate <= 0 {
		sendRate = rate.Inf
	}
	burst := opts.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &TelegramClient{
		base: apiURL + "/bot" + opts.Token + "/",
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		chatRate:  sendRate,
		chatBurst: burst,
		global:    rate.NewLimiter(globalRate, globalRate),
		chats:     make(map[int64]*rate.Limiter),
		logger:    logger,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *TelegramClient) chatLimiter(chatID int64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.chats[chatID]
	if !ok {
		if len(c.chats) >= maxChatLimiters {
			c.chats = make(map[int64]*rate.Limiter)
		}
		l = rate.NewLimiter(c.chatRate, c.chatBurst)
		c.chats[chatID] = l
	}
	return l
}

func (c *TelegramClient) wait(ctx context.Context, chatID int64) error {
	if err := c.chatLimiter(chatID).Wait(ctx); err != nil {
		return err
	}
	return c.global.Wait(ctx)
}

// request builds a fresh body for every attempt
type request func() (io.Reader, string, error)

// withMarkup adds the inline keyboard to a JSON payload when there is one
func withMarkup(payload map[string]any, kb notification.Keyboard) map[string]any {
	if m := markup(kb); m != nil {
		payload["reply_markup"] = m
	}
	return payload
}

func jsonRequest(payload any) request {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func (c *TelegramClient) call(ctx context.Context, chatID int64, method string, build request, out any) error {
	for attempt := 0; ; attempt++ {
		if chatID != 0 {
			if err := c.wait(ctx, chatID); err != nil {
				return err
			}
		}
		err := c.do(ctx, method, build, out)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || attempt >= maxRetries {
			return err
		}
		c.logger.Warn("Telegram flood control, backing off",
			zap.String("method", method),
			zap.Int64("chat_id", chatID),
			zap.Int("retry_after", apiErr.RetryAfter))
		if err := c.sleep(ctx, time.Duration(apiErr.RetryAfter)*time.Second); err != nil {
			return err
		}
	}
}

func (c *TelegramClient) do(ctx context.Context, method string, build request, out any) error {
	body, contentType, err := build()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("telegram %s: failed to read response: %w", method, err)
	}
	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("telegram %s: HTTP %d: malformed response", method, resp.StatusCode)
	}
	if !r.OK {
		apiErr := &APIError{Code: r.ErrorCode, Description: r.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if r.Parameters != nil {
			apiErr.RetryAfter = r.Parameters.RetryAfter
		}
		return apiErr
	}
	if out != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("telegram %s: malformed result: %w", method, err)
		}
	}
	return nil
}

// SendMessage sends an HTML message
func (c *TelegramClient) SendMessage(ctx context.Context, chatID int64, text string, kb notification.Keyboard) (int64, error) {
	var msg sentMessage
	err := c.call(ctx, chatID, "sendMessage", jsonRequest(withMarkup(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               parseModeHTML,
		"disable_web_page_preview": true,
	}, kb)), &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendReplyKeyboard sends a message that replaces the reply keyboard. A nil
// keyboard removes it.
func (c *TelegramClient) SendReplyKeyboard(ctx context.Context, chatID int64, text string, kb notification.ReplyKeyboard) (int64, error) {
	var msg sentMessage
	err := c.call(ctx, chatID, "sendMessage", jsonRequest(map[string]any{
		"chat_id":      chatID,
		"text":         text,
		"parse_mode":   parseModeHTML,
		"reply_markup": replyMarkup(kb),
	}), &msg)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// editResult maps edit refusals: an unchanged message is success, a vanished
// one is notification.ErrMessageNotFound
func editResult(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.notModified() {
			return nil
		}
		if apiErr.messageGone() {
			return fmt.Errorf("%w: %s", notification.ErrMessageNotFound, apiErr.Description)
		}
	}
	return err
}

// EditMessage replaces the text of a sent message
func (c *TelegramClient) EditMessage(ctx context.Context, chatID, messageID int64, text string, kb notification.Keyboard) error {
	return editResult(c.call(ctx, chatID, "editMessageText", jsonRequest(withMarkup(map[string]any{
		"chat_id":                  chatID,
		"message_id":               messageID,
		"text":                     text,
		"parse_mode":               parseModeHTML,
		"disable_web_page_preview": true,
	}, kb)), nil))
}

// EditCaption replaces the caption of a sent document
func (c *TelegramClient) EditCaption(ctx context.Context, chatID, messageID int64, caption string, kb notification.Keyboard) error {
	return editResult(c.call(ctx, chatID, "editMessageCaption", jsonRequest(withMarkup(map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
		"parse_mode": parseModeHTML,
	}, kb)), nil))
}

// SendDocument uploads a file with an HTML caption
func (c *TelegramClient) SendDocument(ctx context.Context, chatID int64, doc notification.Document, kb notification.Keyboard) (int64, error) {
	build := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		fields := map[string]string{
			"chat_id":    strconv.FormatInt(chatID, 10),
			"caption":    doc.Caption,
			"parse_mode": parseModeHTML,
		}
		if m := markup(kb); m != nil {
			b, err := json.Marshal(m)
			if err != nil {
				return nil, "", err
			}
			fields["reply_markup"] = string(b)
		}
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
		part, err := w.CreateFormFile("document", doc.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}

	var msg sentMessage
	if err := c.call(ctx, chatID, "sendDocument", build, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// AnswerCallback acknowledges a button press. A non-empty text is shown as a
// toast, or as a dialog when alert is set.
func (c *TelegramClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	return c.call(ctx, 0, "answerCallbackQuery", jsonRequest(map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        alert,
	}), nil)
}

// SetWebhook registers the public update endpoint
func (c *TelegramClient) SetWebhook(ctx context.Context, url, secretToken string) error {
	payload := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message", "callback_query"},
	}
	if secretToken != "" {
		payload["secret_token"] = secretToken
	}
	return c.call(ctx, 0, "setWebhook", jsonRequest(payload), nil)
}

var _ notification.Messenger = (*TelegramClient)(nil)
