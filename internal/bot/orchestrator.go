// Package bot coordinates one conversational turn: identity gate,
// history load, agent run, and persistence.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viochris/telegram-calendar-ai-bot/internal/agent"
	"github.com/viochris/telegram-calendar-ai-bot/internal/gate"
	"github.com/viochris/telegram-calendar-ai-bot/internal/memory"
	"github.com/viochris/telegram-calendar-ai-bot/internal/prompts"
)

// AgentRunner executes the agent loop for one request.
type AgentRunner interface {
	Run(ctx context.Context, req *agent.Request) (*agent.Response, error)
}

// Alerter pushes a security alert to the developer chat. Failures are
// logged, never propagated.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Orchestrator runs one turn end to end.
type Orchestrator struct {
	logger  *slog.Logger
	gate    *gate.Gate
	store   memory.Store
	agent   AgentRunner
	alerter Alerter
	window  int
}

// New creates a turn orchestrator. window is the number of recent turns
// loaded as conversational context; zero means 5.
func New(logger *slog.Logger, g *gate.Gate, store memory.Store, runner AgentRunner, alerter Alerter, window int) *Orchestrator {
	if window <= 0 {
		window = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:  logger,
		gate:    g,
		store:   store,
		agent:   runner,
		alerter: alerter,
		window:  window,
	}
}

// HandleMessage processes one incoming text message and returns the
// reply. Unauthorized senders get a *gate.DeniedError back; nothing else
// runs for them, and the denial is alerted and logged. A persistence
// failure after a successful agent run never withholds the reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, senderID, senderName, sessionKey, text string, now time.Time) (string, error) {
	if err := o.gate.Authorize(senderID); err != nil {
		var denied *gate.DeniedError
		if errors.As(err, &denied) {
			o.logger.Warn("unauthorized access attempt",
				"severity", "intrusion",
				"sender", senderID,
				"name", senderName,
			)
			if o.alerter != nil {
				if alertErr := o.alerter.Alert(ctx, prompts.IntrusionAlert(senderName, senderID, text)); alertErr != nil {
					o.logger.Error("failed to send security alert", "error", alertErr)
				}
			}
		}
		return "", err
	}

	history, err := o.store.Recent(ctx, sessionKey, o.window)
	if err != nil {
		// A cold history is survivable; the agent just loses context.
		o.logger.Error("failed to load history", "session", sessionKey, "error", err)
		history = nil
	}

	id, _ := uuid.NewV7()
	requestID := id.String()
	resp, err := o.agent.Run(ctx, &agent.Request{
		RequestID:  requestID,
		SessionKey: sessionKey,
		History:    history,
		Text:       text,
		Now:        now,
	})
	if err != nil {
		return "", err
	}

	if err := o.store.Append(ctx, sessionKey, text, resp.Content); err != nil {
		o.logger.Error("failed to persist turn", "session", sessionKey, "error", err)
	}

	o.logger.Info("turn completed",
		"request_id", requestID,
		"session", sessionKey,
		"tools", len(resp.ToolsUsed),
		"iterations", resp.Invocations,
	)
	return resp.Content, nil
}
