package transport

import (
	"context"
	"io"
)

// Command is a text command event ("/merge base=app windowed=0").
type Command struct {
	UserID int64
	ChatID int64
	Name   string // command without the leading slash
	Text   string // full message text including options
}

// Document is an uploaded-file event. FileSize is the size the
// transport declares before any fetch happens.
type Document struct {
	UserID   int64
	ChatID   int64
	FileID   string
	FileName string
	FileSize int64
}

// ButtonPress is an inline-button callback event.
type ButtonPress struct {
	UserID     int64
	ChatID     int64
	CallbackID string
	Action     string
}

// Button is one labeled inline action offered with a text reply.
// Either Action (callback) or URL is set.
type Button struct {
	Label  string
	Action string
	URL    string
}

// Sender delivers replies to the chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, buttons [][]Button) error
	SendDocument(ctx context.Context, chatID int64, filename string, content io.Reader, caption string) error
	AnswerButton(ctx context.Context, callbackID, text string, alert bool) error
}

// Fetcher downloads an uploaded document's bytes on demand.
type Fetcher interface {
	FetchDocument(ctx context.Context, fileID string) ([]byte, error)
}
