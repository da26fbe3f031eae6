// Package agent implements the core tool-calling agent loop.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viochris/telegram-calendar-ai-bot/internal/llm"
	"github.com/viochris/telegram-calendar-ai-bot/internal/memory"
	"github.com/viochris/telegram-calendar-ai-bot/internal/prompts"
	"github.com/viochris/telegram-calendar-ai-bot/internal/tools"
)

// Request represents one user message plus the context it runs under.
type Request struct {
	// RequestID correlates log lines across one turn.
	RequestID  string
	SessionKey string
	History    []memory.Turn
	Text       string
	Now        time.Time
}

// Response is the agent's final answer for one request.
type Response struct {
	Content     string
	ToolsUsed   []string
	Invocations int
}

// Loop drives the model through tool calls until it produces a final
// answer or runs out of iterations.
type Loop struct {
	logger   *slog.Logger
	client   llm.Client
	tools    *tools.Registry
	model    string
	maxIters int
}

// NewLoop creates an agent loop. maxIters bounds the number of LLM
// round-trips per request; zero means 8.
func NewLoop(logger *slog.Logger, client llm.Client, registry *tools.Registry, model string, maxIters int) *Loop {
	if maxIters <= 0 {
		maxIters = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger:   logger,
		client:   client,
		tools:    registry,
		model:    model,
		maxIters: maxIters,
	}
}

// swapState tracks the update-failure fallback within one request. After
// a failed update the model is instructed to create a replacement event
// and then delete the original.
type swapState struct {
	active             bool
	pendingInstruction bool
	originalID         string
	created            bool
}

// Run executes the agent loop for one user message.
//
// Tool failures are not all equal: validation failures (unknown tool,
// fabricated event ID, bad arguments) go back to the model as tool
// results so it can correct itself; a read failure is retried once
// before being surfaced; a failed update_event triggers the swap
// fallback. A mutation is never retried automatically.
func (l *Loop) Run(ctx context.Context, req *Request) (*Response, error) {
	msgs := l.buildMessages(req)
	cycle := tools.NewCycle()
	defs := l.tools.Definitions()

	resp := &Response{}
	var swap swapState
	nudged := false

	l.logger.Info("agent loop started",
		"request_id", req.RequestID,
		"session", req.SessionKey,
		"history", len(req.History),
	)

	for iter := 0; iter < l.maxIters; iter++ {
		chat, err := l.client.Chat(ctx, l.model, msgs, defs)
		if err != nil {
			return nil, fmt.Errorf("llm chat: %w", err)
		}
		resp.Invocations++

		if len(chat.Message.ToolCalls) == 0 {
			if chat.Message.Content != "" {
				resp.Content = chat.Message.Content
				l.logger.Info("agent loop completed",
					"session", req.SessionKey,
					"iterations", resp.Invocations,
					"tools", len(resp.ToolsUsed),
				)
				return resp, nil
			}
			if nudged {
				resp.Content = prompts.EmptyResponseFallback
				return resp, nil
			}
			nudged = true
			msgs = append(msgs, llm.Message{Role: "system", Content: prompts.EmptyResponseNudge})
			continue
		}

		msgs = append(msgs, chat.Message)

		for _, call := range chat.Message.ToolCalls {
			result, final := l.dispatch(ctx, cycle, call, &swap, resp)
			if final != "" {
				resp.Content = final
				return resp, nil
			}
			msgs = append(msgs, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}

		if swap.active && swap.pendingInstruction {
			swap.pendingInstruction = false
			msgs = append(msgs, llm.Message{Role: "system", Content: prompts.SwapInstruction(swap.originalID)})
		}
	}

	l.logger.Warn("agent loop budget exhausted",
		"session", req.SessionKey,
		"iterations", resp.Invocations,
	)
	resp.Content = prompts.LoopBudgetFallback
	return resp, nil
}

// dispatch executes one tool call and applies the failure policy. It
// returns the tool result text to feed back to the model, or a non-empty
// final user-facing reply that short-circuits the loop.
func (l *Loop) dispatch(ctx context.Context, cycle *tools.Cycle, call llm.ToolCall, swap *swapState, resp *Response) (result, final string) {
	out, err := l.tools.Execute(ctx, cycle, call.Name, call.Arguments)
	resp.ToolsUsed = append(resp.ToolsUsed, call.Name)

	if err == nil {
		l.swapAdvance(swap, call)
		return out, ""
	}

	if tools.IsValidation(err) {
		l.logger.Warn("tool call rejected", "tool", call.Name, "error", err)
		return "Error: " + err.Error(), ""
	}

	// Service failure.
	l.logger.Error("tool call failed", "tool", call.Name, "error", err)

	if tools.IsRead(call.Name) {
		retried, retryErr := l.tools.Execute(ctx, cycle, call.Name, call.Arguments)
		if retryErr == nil {
			return retried, ""
		}
		return "Error: " + retryErr.Error(), ""
	}

	switch call.Name {
	case tools.ToolUpdateEvent:
		if swap.active {
			// A second update failure inside a swap should not nest.
			return "Error: " + err.Error(), ""
		}
		swap.active = true
		swap.pendingInstruction = true
		swap.originalID = stringField(call.Arguments, "event_id")
		return "Error: " + err.Error(), ""
	case tools.ToolCreateEvent:
		if swap.active {
			return "", prompts.SwapCreateFailed
		}
	case tools.ToolDeleteEvent:
		if swap.active && swap.created {
			return "", prompts.SwapDeleteFailed
		}
	}
	return "Error: " + err.Error(), ""
}

// swapAdvance moves the swap state machine forward on successful
// mutations.
func (l *Loop) swapAdvance(swap *swapState, call llm.ToolCall) {
	if !swap.active {
		return
	}
	switch call.Name {
	case tools.ToolCreateEvent:
		swap.created = true
	case tools.ToolDeleteEvent:
		if swap.created && stringField(call.Arguments, "event_id") == swap.originalID {
			l.logger.Info("swap fallback completed", "original", swap.originalID)
			swap.active = false
			swap.created = false
		}
	}
}

// buildMessages assembles the conversation for the model: system prompt,
// the persisted history window, then the incoming text.
func (l *Loop) buildMessages(req *Request) []llm.Message {
	msgs := make([]llm.Message, 0, 2+2*len(req.History))
	msgs = append(msgs, llm.Message{Role: "system", Content: prompts.System(req.Now)})
	for _, turn := range req.History {
		msgs = append(msgs, llm.Message{Role: "user", Content: turn.Human})
		msgs = append(msgs, llm.Message{Role: "assistant", Content: turn.Assistant})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: req.Text})
	return msgs
}

func stringField(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}
