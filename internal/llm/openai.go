package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GeminiBaseURL is the OpenAI-compatibility endpoint for Google's
// Gemini models, the default provider for this bot.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAIClient implements Client over any OpenAI-compatible Chat
// Completions endpoint (OpenAI itself, Gemini's compatibility layer,
// or a local proxy).
type OpenAIClient struct {
	client      openai.Client
	temperature float64
	logger      *slog.Logger
}

// OpenAIOptions configure an OpenAIClient.
type OpenAIOptions struct {
	// BaseURL defaults to the Gemini compatibility endpoint.
	BaseURL     string
	APIKey      string
	Temperature float64
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// NewOpenAIClient creates a chat-completions client.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = GeminiBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
		option.WithAPIKey(opts.APIKey),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenAIClient{
		client:      openai.NewClient(reqOpts...),
		temperature: opts.Temperature,
		logger:      opts.Logger,
	}
}

// Chat sends a chat completion request with the given tool definitions.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []ToolDefinition) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    buildMessages(messages),
		Temperature: openai.Float(c.temperature),
	}
	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: no choices returned")
	}

	choice := resp.Choices[0]
	out := &ChatResponse{
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Message: Message{
			Role:    "assistant",
			Content: choice.Message.Content,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		call := ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
		}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
				c.logger.Warn("malformed tool call arguments",
					"tool", tc.Function.Name,
					"error", err,
				)
				call.Arguments = map[string]any{}
			}
		}
		out.Message.ToolCalls = append(out.Message.ToolCalls, call)
	}

	return out, nil
}

// buildMessages converts unified messages into the SDK's message param
// unions. Tool results must carry the tool_call_id that produced them.
func buildMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				args, err := json.Marshal(tc.Arguments)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: calls,
			}
			// Gemini often returns text alongside tool calls; keep it in
			// the replayed history.
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// buildTools converts tool definitions into SDK function tool params.
func buildTools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
