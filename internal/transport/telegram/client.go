package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/codeweld/mergebot/internal/logging"
	"github.com/codeweld/mergebot/internal/transport"
)

// Client talks to the Telegram Bot API. It implements transport.Sender
// and transport.Fetcher.
type Client struct {
	rest   *resty.Client
	base   string
	token  string
	logger *logging.Logger
}

// NewClient creates a Bot API client with retrying transport.
func NewClient(apiBase, token string, logger *logging.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 15 * time.Second
	retryClient.Logger = nil // Disable logging

	rest := resty.New()
	rest.
		SetTimeout(90*time.Second).
		SetHeader("User-Agent", "mergebot/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{
		rest:   rest,
		base:   apiBase,
		token:  token,
		logger: logger,
	}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
}

func (c *Client) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.base, c.token, filePath)
}

// call posts a JSON request and unmarshals the result envelope.
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	var envelope apiResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&envelope).
		Post(c.methodURL(method))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.IsError() || !envelope.OK {
		return &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// APIError is a Bot API-level failure (ok=false or HTTP error status).
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// GetMe verifies the token and returns the bot's username.
func (c *Client) GetMe(ctx context.Context) (string, error) {
	var me struct {
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", map[string]any{}, &me); err != nil {
		return "", err
	}
	return me.Username, nil
}

// GetUpdates long-polls for new updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	body := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	if err := c.call(ctx, "getUpdates", body, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendText sends a text reply, optionally with an inline keyboard.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, buttons [][]transport.Button) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup := inlineKeyboard(buttons); markup != nil {
		body["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", body, nil)
}

// SendDocument uploads a document with a caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, content io.Reader, caption string) error {
	var envelope apiResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFileReader("document", filename, content).
		SetFormData(map[string]string{
			"chat_id": fmt.Sprintf("%d", chatID),
			"caption": caption,
		}).
		SetResult(&envelope).
		Post(c.methodURL("sendDocument"))
	if err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}
	if resp.IsError() || !envelope.OK {
		return &APIError{Method: "sendDocument", Code: envelope.ErrorCode, Description: envelope.Description}
	}
	return nil
}

// AnswerButton acknowledges a callback query, optionally with an alert.
func (c *Client) AnswerButton(ctx context.Context, callbackID, text string, alert bool) error {
	body := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		body["text"] = text
		body["show_alert"] = alert
	}
	return c.call(ctx, "answerCallbackQuery", body, nil)
}

// FetchDocument resolves a file id and downloads its bytes.
func (c *Client) FetchDocument(ctx context.Context, fileID string) ([]byte, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}

	resp, err := c.rest.R().SetContext(ctx).Get(c.fileURL(file.FilePath))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.FilePath, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download %s: status %d", file.FilePath, resp.StatusCode())
	}
	return resp.Body(), nil
}

// inlineKeyboard converts button rows to Bot API reply markup.
func inlineKeyboard(rows [][]transport.Button) map[string]any {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]map[string]string, 0, len(rows))
	for _, row := range rows {
		buttons := make([]map[string]string, 0, len(row))
		for _, b := range row {
			btn := map[string]string{"text": b.Label}
			if b.URL != "" {
				btn["url"] = b.URL
			} else {
				btn["callback_data"] = b.Action
			}
			buttons = append(buttons, btn)
		}
		keyboard = append(keyboard, buttons)
	}
	return map[string]any{"inline_keyboard": keyboard}
}
