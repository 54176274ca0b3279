package telegram

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/transport"
)

// Handler consumes the transport events the poller produces.
type Handler interface {
	HandleCommand(ctx context.Context, cmd transport.Command)
	HandleDocument(ctx context.Context, doc transport.Document)
	HandleButton(ctx context.Context, press transport.ButtonPress)
}

// Poller long-polls getUpdates and dispatches events. Each update runs
// on its own goroutine so one user's build cannot starve another's
// events; per-user ordering is the workflow's job.
type Poller struct {
	client  *Client
	handler Handler
	timeout time.Duration
	logger  *logging.Logger
}

// NewPoller creates a poller.
func NewPoller(client *Client, handler Handler, timeout time.Duration, logger *logging.Logger) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		timeout: timeout,
		logger:  logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("getUpdates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update Update) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		chatID := q.From.ID
		if q.Message != nil {
			chatID = q.Message.Chat.ID
		}
		p.handler.HandleButton(ctx, transport.ButtonPress{
			UserID:     q.From.ID,
			ChatID:     chatID,
			CallbackID: q.ID,
			Action:     q.Data,
		})

	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if msg.Document != nil {
			name := msg.Document.FileName
			if name == "" {
				name = "file"
			}
			p.handler.HandleDocument(ctx, transport.Document{
				UserID:   msg.From.ID,
				ChatID:   msg.Chat.ID,
				FileID:   msg.Document.FileID,
				FileName: name,
				FileSize: msg.Document.FileSize,
			})
			return
		}
		if name, ok := commandName(msg.Text); ok {
			p.handler.HandleCommand(ctx, transport.Command{
				UserID: msg.From.ID,
				ChatID: msg.Chat.ID,
				Name:   name,
				Text:   msg.Text,
			})
		}
	}
}

// commandName extracts "merge" from "/merge@bot base=x"; non-command
// text is ignored.
func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}
