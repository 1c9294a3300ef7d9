package handler

// Update is the subset of a Bot API update the bot reacts to
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *ChatMessage   `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// ChatUser is the sender of a message or a button press
type ChatUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// Chat is the conversation a message belongs to
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Contact is a shared phone number
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	UserID      int64  `json:"user_id,omitempty"`
}

// Location is a shared position
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WebAppData is sent when the shop web app submits a cart
type WebAppData struct {
	Data string `json:"data"`
}

// ChatDocument marks a message that carries a file
type ChatDocument struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

// ChatMessage is an inbound message
type ChatMessage struct {
	MessageID  int64         `json:"message_id"`
	From       *ChatUser     `json:"from,omitempty"`
	Chat       Chat          `json:"chat"`
	Text       string        `json:"text,omitempty"`
	Caption    string        `json:"caption,omitempty"`
	Contact    *Contact      `json:"contact,omitempty"`
	Location   *Location     `json:"location,omitempty"`
	WebAppData *WebAppData   `json:"web_app_data,omitempty"`
	Document   *ChatDocument `json:"document,omitempty"`
}

// CallbackQuery is an inline button press
type CallbackQuery struct {
	ID      string       `json:"id"`
	From    ChatUser     `json:"from"`
	Message *ChatMessage `json:"message,omitempty"`
	Data    string       `json:"data"`
}
