package expert

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// rotatingToken hands out "t1", then "t2" after each invalidation.
type rotatingToken struct {
	generation atomic.Int32
	fetches    atomic.Int32
	err        error
}

func (r *rotatingToken) GetToken(context.Context) (string, error) {
	r.fetches.Add(1)
	if r.err != nil {
		return "", r.err
	}
	return "t" + string(rune('1'+r.generation.Load())), nil
}

func (r *rotatingToken) InvalidateCache() {
	r.generation.Add(1)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *rotatingToken) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{URL: srv.URL + "/api/answer"}
	if tokens != nil {
		cfg.TokenProvider = tokens
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	for _, bad := range []string{"", "not a url", "ftp://x/answer", "/relative"} {
		_, err := NewClient(Config{URL: bad})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, bad)
	}

	c, err := NewClient(Config{URL: "https://expert.example/answer"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSystemPrompt, c.system)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}

func TestAsk_SendsQuestionWithBearerToken(t *testing.T) {
	tokens := &rotatingToken{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/answer", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))

		var req askRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, askMessage{Role: "user", Content: "How much iron is in spinach?"}, req.Messages[1])

		_, _ = w.Write([]byte(`{"answer":"About 2.7 mg per 100 g."}`))
	}, tokens)

	answer, err := c.Ask(context.Background(), "How much iron is in spinach?")
	require.NoError(t, err)
	assert.Equal(t, "About 2.7 mg per 100 g.", answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestAsk_RetriesOnceWithFreshToken(t *testing.T) {
	tokens := &rotatingToken{}
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}, tokens)

	answer, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Text)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), tokens.fetches.Load())
}

func TestAsk_Errors(t *testing.T) {
	t.Run("token failure", func(t *testing.T) {
		tokens := &rotatingToken{err: errors.New("okta down")}
		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
			t.Error("no request expected without a token")
		}, tokens)

		_, err := c.Ask(context.Background(), "q")
		assert.ErrorContains(t, err, "okta down")
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		}, nil)

		_, err := c.Ask(context.Background(), "q")
		assert.ErrorContains(t, err, "status 502")
		assert.ErrorContains(t, err, "upstream unavailable")
	})

	t.Run("not json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>login</html>"))
		}, nil)

		_, err := c.Ask(context.Background(), "q")
		assert.ErrorContains(t, err, "decode response")
	})
}

func TestAnswerText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "answer wins", raw: `{"content":"c","answer":"a"}`, want: "a"},
		{name: "empty fields are skipped", raw: `{"answer":"","content":"c"}`, want: "c"},
		{name: "message object", raw: `{"message":{"role":"assistant","content":"m"}}`, want: "m"},
		{name: "bare string", raw: `"plain"`, want: "plain"},
		{name: "unknown object", raw: `{"status":"ok"}`, want: "{\n  \"status\": \"ok\"\n}"},
		{name: "array", raw: `[1,2]`, want: "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := answerText([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsk_ExtractsCitedSources(t *testing.T) {
	reply := map[string]string{"answer": "Spinach has vitamins A, C and K.\n\n" +
		"Cited Sources:\n" +
		`<a href="/docs/spinach.pdf" target="_blank">Vegetables &amp; Spinach.pdf</a>` + "\n" +
		`<a href="https://other.example/iron.pdf"><b>Iron</b> guide</a>` + "\n" +
		`<a href="/docs/spinach.pdf">Vegetables &amp; Spinach.pdf</a>`}

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(reply)
	}, nil)

	answer, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "Spinach has vitamins A, C and K.", answer.Text)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "Vegetables & Spinach.pdf", answer.Sources[0].Text)
	assert.Equal(t, c.url.Scheme+"://"+c.url.Host+"/docs/spinach.pdf", answer.Sources[0].URL)
	assert.Equal(t, domain.Source{Text: "Iron guide", URL: "https://other.example/iron.pdf"}, answer.Sources[1])
}

func TestAsk_CitedSourcesWithoutLinksStayInText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"answer":"Eat greens.\nCited sources: none"}`))
	}, nil)

	answer, err := c.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Eat greens.\nCited sources: none", answer.Text)
	assert.Nil(t, answer.Sources)
}
