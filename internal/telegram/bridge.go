package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/viochris/telegram-calendar-ai-bot/internal/buildinfo"
	"github.com/viochris/telegram-calendar-ai-bot/internal/gate"
	"github.com/viochris/telegram-calendar-ai-bot/internal/prompts"
)

// API abstracts the Bot API client for testability. The real
// implementation is *Client.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// MessageHandler runs one conversational turn. The real implementation
// is *bot.Orchestrator.
type MessageHandler interface {
	HandleMessage(ctx context.Context, senderID, senderName, sessionKey, text string, now time.Time) (string, error)
}

// handleTimeout bounds how long a single inbound message may be
// processed (agent loop + reply send).
const handleTimeout = 5 * time.Minute

// pollRetryDelay is the pause before retrying after a failed poll.
const pollRetryDelay = 3 * time.Second

// chatQueueSize bounds the per-chat backlog. Messages beyond it are
// dropped with a warning rather than blocking the poll loop.
const chatQueueSize = 16

// Alerter sends security alerts to the developer chat. It satisfies
// bot.Alerter.
type Alerter struct {
	api    API
	chatID int64
}

// NewAlerter creates an alerter targeting the developer chat.
func NewAlerter(api API, developerChatID int64) *Alerter {
	return &Alerter{api: api, chatID: developerChatID}
}

// Alert delivers one alert message.
func (a *Alerter) Alert(ctx context.Context, text string) error {
	return a.api.SendMessage(ctx, a.chatID, text)
}

// BridgeConfig holds the dependencies for a Bridge.
type BridgeConfig struct {
	API     API
	Handler MessageHandler
	// Alerter, when set, receives a developer notification for every
	// turn that fails with anything other than a denial.
	Alerter     *Alerter
	Logger      *slog.Logger
	PollTimeout int // getUpdates hold duration in seconds
}

// Bridge polls for Telegram updates and routes each text message
// through the orchestrator. Messages from the same chat are processed
// in arrival order; different chats run concurrently.
type Bridge struct {
	api         API
	handler     MessageHandler
	alerter     *Alerter
	logger      *slog.Logger
	pollTimeout int

	mu     sync.Mutex
	queues map[int64]chan *Message
	wg     sync.WaitGroup
}

// NewBridge creates a Telegram message bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Bridge{
		api:         cfg.API,
		handler:     cfg.Handler,
		alerter:     cfg.Alerter,
		logger:      logger,
		pollTimeout: pollTimeout,
		queues:      make(map[int64]chan *Message),
	}
}

// Start polls for updates until ctx is cancelled, then drains the
// per-chat workers before returning.
func (b *Bridge) Start(ctx context.Context) {
	b.logger.Info("telegram bridge started", "poll_timeout", b.pollTimeout)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		default:
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.shutdown()
				return
			}
			b.logger.Error("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				b.shutdown()
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			if upd.Message == nil || upd.Message.Text == "" || upd.Message.From == nil {
				continue
			}
			b.enqueue(ctx, upd.Message)
		}
	}
}

// shutdown closes the per-chat queues and waits for in-flight workers.
func (b *Bridge) shutdown() {
	b.logger.Info("telegram bridge shutting down")
	b.mu.Lock()
	for chatID, ch := range b.queues {
		close(ch)
		delete(b.queues, chatID)
	}
	b.mu.Unlock()
	b.wg.Wait()
}

// enqueue hands a message to its chat's worker, creating the worker on
// first use.
func (b *Bridge) enqueue(ctx context.Context, msg *Message) {
	b.mu.Lock()
	ch, ok := b.queues[msg.Chat.ID]
	if !ok {
		ch = make(chan *Message, chatQueueSize)
		b.queues[msg.Chat.ID] = ch
		b.wg.Add(1)
		go b.worker(ctx, ch)
	}
	b.mu.Unlock()

	select {
	case ch <- msg:
	default:
		b.logger.Warn("telegram chat queue full, dropping message",
			"chat", msg.Chat.ID,
		)
	}
}

// worker processes one chat's messages in order.
func (b *Bridge) worker(ctx context.Context, ch <-chan *Message) {
	defer b.wg.Done()
	for msg := range ch {
		b.handle(ctx, msg)
	}
}

// handle routes one message: commands get static texts, everything else
// goes through the orchestrator.
func (b *Bridge) handle(ctx context.Context, msg *Message) {
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch command(text) {
	case "start":
		b.send(ctx, chatID, prompts.Welcome)
		return
	case "info":
		b.send(ctx, chatID, prompts.Info(buildinfo.Version))
		return
	case "howtouse":
		b.send(ctx, chatID, prompts.HowToUse)
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)

	b.logger.Info("telegram message received",
		"sender", senderID,
		"chat", chatID,
		"message_len", len(msg.Text),
	)

	if err := b.api.SendChatAction(ctx, chatID, "typing"); err != nil {
		b.logger.Debug("telegram typing indicator failed", "error", err)
	}

	reply, err := b.handler.HandleMessage(ctx, senderID, msg.From.DisplayName(), senderID, text, time.Now())
	if err != nil {
		var denied *gate.DeniedError
		if errors.As(err, &denied) {
			b.send(ctx, chatID, prompts.AccessDenied)
			return
		}
		b.logger.Error("telegram turn failed", "sender", senderID, "error", err)
		b.send(ctx, chatID, classifyError(err))
		if b.alerter != nil {
			if alertErr := b.alerter.Alert(ctx, prompts.SystemAlert(err)); alertErr != nil {
				b.logger.Error("failed to deliver error alert", "error", alertErr)
			}
		}
		return
	}

	if reply == "" {
		return
	}
	b.send(ctx, chatID, reply)
}

// send delivers text to a chat, logging failures. The last line of
// defense: there is nobody left to tell if this fails.
func (b *Bridge) send(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("telegram send failed", "chat", chatID, "error", err)
	}
}

// command extracts a known slash command from the message text.
// Commands tolerate a doubled slash and a @botname suffix.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.ToLower(strings.Fields(text)[0])
	cmd = strings.TrimLeft(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	switch cmd {
	case "start", "info", "howtouse":
		return cmd
	}
	return ""
}

// classifyError maps a turn failure to the user-facing apology for its
// failure class.
func classifyError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "429") || strings.Contains(msg, "exhausted"):
		return prompts.ErrQuota
	case strings.Contains(msg, "api_key") || strings.Contains(msg, "key invalid") || strings.Contains(msg, "403"):
		return prompts.ErrAuth
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "calendar"):
		return prompts.ErrCalendar
	default:
		return prompts.ErrGeneric
	}
}
