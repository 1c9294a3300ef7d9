package notification

import (
	"context"
	"errors"
)

// ErrMessageNotFound is returned by EditMessage when the target message no
// longer exists or can no longer be edited
var ErrMessageNotFound = errors.New("message to edit not found")

// Button is one inline keyboard button. Exactly one action field is set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
	WebAppURL    string
}

// Keyboard is a grid of inline buttons
type Keyboard [][]Button

// ReplyButton is a button of the persistent keyboard under the input field.
// At most one request field is set.
type ReplyButton struct {
	Text            string
	RequestContact  bool
	RequestLocation bool
	WebAppURL       string
}

// ReplyKeyboard is a grid of reply buttons. A nil keyboard removes the
// current one.
type ReplyKeyboard [][]ReplyButton

// Document is a file attachment with an optional caption
type Document struct {
	Filename string
	Data     []byte
	Caption  string
}

// Messenger delivers chat messages. Editing a message to identical content
// must succeed.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error)
	EditMessage(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error
	SendDocument(ctx context.Context, chatID int64, doc Document, kb Keyboard) (int64, error)
	EditCaption(ctx context.Context, chatID, messageID int64, caption string, kb Keyboard) error
}
