// Package expert calls an external question-answering endpoint on behalf of
// the expert tool.
package expert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ExpertService = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultSystemPrompt = "You are a helpful subject-matter expert. Respond briefly."
)

// maxResponseBytes bounds how much of a reply is read.
const maxResponseBytes = 1 << 20

// answerFields are the reply fields that may carry the answer, in order.
var answerFields = []string{"answer", "response", "content", "message"}

var anchor = regexp.MustCompile(`(?is)<a\s[^>]*?href\s*=\s*"([^"]*)"[^>]*>(.*?)</a>`)

var tag = regexp.MustCompile(`<[^>]*>`)

var citedHeader = regexp.MustCompile(`(?i)cited sources:`)

// Config holds configuration for the expert client.
type Config struct {
	// URL is the answer endpoint. Required.
	URL string

	// TokenProvider supplies bearer tokens. Nil sends unauthenticated requests.
	TokenProvider driven.TokenProvider

	// SystemPrompt frames the expert's reply (default: DefaultSystemPrompt).
	SystemPrompt string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Client posts questions to the expert endpoint.
type Client struct {
	client *http.Client
	url    *url.URL
	tokens driven.TokenProvider
	system string
}

type askRequest struct {
	Messages []askMessage `json:"messages"`
}

type askMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient creates an expert client.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil || (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return nil, fmt.Errorf("%w: expert url %q must be an absolute http(s) URL", domain.ErrInvalidConfig, cfg.URL)
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    endpoint,
		tokens: cfg.TokenProvider,
		system: cfg.SystemPrompt,
	}, nil
}

// Ask sends the question and returns the expert's answer. A rejected token
// is dropped and the request retried once with a fresh one.
func (c *Client) Ask(ctx context.Context, question string) (*driven.ExpertAnswer, error) {
	body, err := json.Marshal(askRequest{Messages: []askMessage{
		{Role: string(domain.RoleSystem), Content: c.system},
		{Role: string(domain.RoleUser), Content: question},
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(interface{ InvalidateCache() }); ok {
			resp.Body.Close()
			inv.InvalidateCache()
			if resp, err = c.post(ctx, body); err != nil {
				return nil, err
			}
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expert error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	text, err := answerText(raw)
	if err != nil {
		return nil, err
	}
	text, sources := c.citations(text)
	return &driven.ExpertAnswer{Text: text, Sources: sources}, nil
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("expert auth: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}

// answerText picks the answer out of a reply. Objects without a known answer
// field are returned as indented JSON so the model still sees them.
func answerText(raw []byte) (string, error) {
	var reply any
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	obj, ok := reply.(map[string]any)
	if !ok {
		if s, isString := reply.(string); isString {
			return s, nil
		}
		return strings.TrimSpace(string(raw)), nil
	}

	for _, field := range answerFields {
		switch v := obj[field].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case map[string]any:
			// OpenAI-style {"message": {"role": ..., "content": ...}}
			if content, _ := v["content"].(string); content != "" {
				return content, nil
			}
		}
	}

	pretty, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode response: %w", err)
	}
	return string(pretty), nil
}

// citations splits a trailing "Cited Sources:" block of HTML links off the
// answer. Relative links resolve against the expert endpoint.
func (c *Client) citations(text string) (string, []domain.Source) {
	headers := citedHeader.FindAllStringIndex(text, -1)
	if len(headers) == 0 {
		return text, nil
	}
	idx := headers[len(headers)-1][0]
	block := text[headers[len(headers)-1][1]:]

	var sources []domain.Source
	for _, m := range anchor.FindAllStringSubmatch(block, -1) {
		label := strings.TrimSpace(html.UnescapeString(tag.ReplaceAllString(m[2], "")))
		href := html.UnescapeString(m[1])
		if label == "" {
			label = href
		}
		if ref, err := url.Parse(href); err == nil {
			href = c.url.ResolveReference(ref).String()
		}
		sources = domain.MergeSources(sources, domain.Source{Text: label, URL: href})
	}
	if len(sources) == 0 {
		return text, nil
	}
	return strings.TrimSpace(text[:idx]), sources
}
