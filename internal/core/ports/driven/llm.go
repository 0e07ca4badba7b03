// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// LLMService provides tool-aware chat completion.
//
// Implementations may include:
//   - OpenAI and Azure OpenAI (function calling)
//   - Anthropic (tool use)
//   - Ollama (local models with tool support)
type LLMService interface {
	// Chat sends a transcript and returns either final text, tool calls, or both.
	// Implementations must not retry internally.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatRequest is a single model invocation.
type ChatRequest struct {
	// System is the system prompt.
	System string

	// Messages is the transcript, oldest first. Never contains system messages.
	Messages []domain.Message

	// Tools are the tools the model may call. Empty forces a text-only answer.
	Tools []domain.ToolDefinition

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	// Content is the text part of the reply.
	Content string

	// ToolCalls are the tools the model asked to run, in order.
	ToolCalls []domain.ToolCall

	// FinishReason is the provider's stop reason.
	FinishReason string
}

// WantsTools returns true if the model requested at least one tool call.
func (r *ChatResponse) WantsTools() bool {
	return r != nil && len(r.ToolCalls) > 0
}
