// Package telegram implements the Bot API transport: a thin HTTPS
// client plus the bridge that routes updates through the orchestrator.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/viochris/telegram-calendar-ai-bot/internal/buildinfo"
	"github.com/viochris/telegram-calendar-ai-bot/internal/httpkit"
)

const defaultAPIBase = "https://api.telegram.org"

// MaxMessageLength is the chunking threshold for outbound messages.
// Telegram's hard limit is 4096; 4000 leaves a safety buffer.
const MaxMessageLength = 4000

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	httpc  *http.Client
	base   string
	token  string
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Tests point this at a local
// fake server.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.base = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// NewClient creates a Bot API client for the given bot token. The
// underlying HTTP client has no overall timeout; long polling holds
// requests open and per-call deadlines come from the context.
func NewClient(token string, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpc:  httpkit.NewClient(httpkit.WithTimeout(0), httpkit.WithUserAgent(buildinfo.UserAgent())),
		base:   defaultAPIBase,
		token:  token,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetUpdates long-polls for new updates after offset. timeoutSec is the
// server-side hold duration; zero makes it a short poll.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	raw, err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	return updates, nil
}

// SendMessage delivers text to a chat with Markdown formatting. Texts
// over MaxMessageLength are split on paragraph boundaries and sent as
// sequential chunks.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		if _, err := c.call(ctx, "sendMessage", map[string]any{
			"chat_id":    chatID,
			"text":       chunk,
			"parse_mode": "Markdown",
		}); err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
	}
	return nil
}

// SendChatAction shows an action indicator ("typing") in the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if _, err := c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  action,
	}); err != nil {
		return fmt.Errorf("telegram sendChatAction: %w", err)
	}
	return nil
}

// call POSTs one Bot API method and unwraps the response envelope.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.base, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpkit.DrainAndClose(resp.Body, 1<<20)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("api error %d: %s", envelope.ErrorCode, envelope.Description)
	}
	return envelope.Result, nil
}

// SplitMessage splits text into chunks of at most max characters,
// breaking on paragraph boundaries so Markdown structure survives.
func SplitMessage(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, part := range strings.Split(text, "\n\n") {
		if current.Len()+len(part)+2 >= max && strings.TrimSpace(current.String()) != "" {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
		// A single paragraph longer than max is split by force, backing
		// off to a rune boundary so no chunk ends mid-character.
		for len(part) > max {
			cut := max
			for cut > 0 && !utf8.RuneStart(part[cut]) {
				cut--
			}
			if cut == 0 {
				cut = max
			}
			chunks = append(chunks, part[:cut])
			part = part[cut:]
		}
		current.WriteString(part)
		current.WriteString("\n\n")
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}
	return chunks
}
