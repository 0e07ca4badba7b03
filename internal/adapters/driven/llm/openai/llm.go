// Package openai provides an LLM service adapter using the OpenAI chat
// completions API, including Azure OpenAI deployments.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key. Required unless TokenProvider is set.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// For Azure this is the resource endpoint, e.g. https://name.openai.azure.com.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	// For Azure this is the deployment name.
	Model string

	// APIVersion switches the adapter to Azure mode when set.
	APIVersion string

	// TokenProvider supplies bearer tokens instead of a static key.
	TokenProvider driven.TokenProvider

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides tool-aware chat completion using the OpenAI API.
type LLMService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	apiVersion string
	tokens     driven.TokenProvider
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model,omitempty"`
	Messages    []chatCompletionMsg `json:"messages"`
	Tools       []toolSpec          `json:"tools,omitempty"`
	ToolChoice  string              `json:"tool_choice,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []toolCallSpec `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type toolSpec struct {
	Type     string                `json:"type"`
	Function domain.ToolDefinition `json:"function"`
}

type toolCallSpec struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []toolCallSpec `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" && cfg.TokenProvider == nil {
		return nil, fmt.Errorf("openai: API key or token provider is required")
	}
	if cfg.BaseURL == "" {
		if cfg.APIVersion != "" {
			return nil, fmt.Errorf("openai: azure endpoint is required")
		}
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		apiVersion: cfg.APIVersion,
		tokens:     cfg.TokenProvider,
	}, nil
}

// IsAzure returns true if requests target an Azure OpenAI deployment.
func (s *LLMService) IsAzure() bool {
	return s.apiVersion != ""
}

// Chat sends the transcript with tool definitions and returns the model's reply.
func (s *LLMService) Chat(ctx context.Context, chatReq driven.ChatRequest) (*driven.ChatResponse, error) {
	reqBody := chatCompletionRequest{
		Messages:    toWireMessages(chatReq.System, chatReq.Messages),
		MaxTokens:   chatReq.MaxTokens,
		Temperature: chatReq.Temperature,
	}
	if !s.IsAzure() {
		reqBody.Model = s.model
	}
	if len(chatReq.Tools) > 0 {
		reqBody.Tools = make([]toolSpec, len(chatReq.Tools))
		for i, def := range chatReq.Tools {
			reqBody.Tools[i] = toolSpec{Type: "function", Function: def}
		}
		reqBody.ToolChoice = "auto"
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.completionsURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := s.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatCompletionResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no response choices returned")
	}

	choice := chatResp.Choices[0]
	out := &driven.ChatResponse{FinishReason: choice.FinishReason}
	if choice.Message.Content != nil {
		out.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(strings.TrimSpace(tc.Function.Arguments)) == 0 {
			args = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func toWireMessages(system string, messages []domain.Message) []chatCompletionMsg {
	out := make([]chatCompletionMsg, 0, len(messages)+1)
	if system != "" {
		out = append(out, chatCompletionMsg{Role: string(domain.RoleSystem), Content: &system})
	}
	for _, m := range messages {
		msg := chatCompletionMsg{
			Role:       string(m.Role),
			ToolCallID: m.ToolCallID,
		}
		content := m.Content
		switch {
		case m.Role == domain.RoleAssistant && len(m.ToolCalls) > 0:
			if content != "" {
				msg.Content = &content
			}
			for _, call := range m.ToolCalls {
				var spec toolCallSpec
				spec.ID = call.ID
				spec.Type = "function"
				spec.Function.Name = call.Name
				spec.Function.Arguments = string(call.Arguments)
				msg.ToolCalls = append(msg.ToolCalls, spec)
			}
		default:
			msg.Content = &content
		}
		if m.Role == domain.RoleTool {
			msg.Name = m.Name
		}
		out = append(out, msg)
	}
	return out
}

func (s *LLMService) completionsURL() string {
	if !s.IsAzure() {
		return s.baseURL + "/chat/completions"
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		s.baseURL, url.PathEscape(s.model), url.QueryEscape(s.apiVersion))
}

func (s *LLMService) modelsURL() string {
	if !s.IsAzure() {
		return s.baseURL + "/models"
	}
	return fmt.Sprintf("%s/openai/models?api-version=%s", s.baseURL, url.QueryEscape(s.apiVersion))
}

// authorize sets the credential header. A token provider takes precedence
// over a static key; Azure static keys use the api-key header.
func (s *LLMService) authorize(ctx context.Context, req *http.Request) error {
	if s.tokens != nil {
		token, err := s.tokens.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("openai: get access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	if s.IsAzure() {
		req.Header.Set("api-key", s.apiKey)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the models endpoint.
// This is a lightweight check that validates credentials without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.modelsURL(), http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	if err := s.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
