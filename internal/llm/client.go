// Package llm provides the LLM client interface and provider implementations.
package llm

import "context"

// Client is the interface the agent loop drives. It is deliberately
// narrow so the loop's state machine can be tested against a scripted
// fake instead of a live model.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []ToolDefinition) (*ChatResponse, error)
}
