package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/lectern/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

const mlCourse = `Course Title: Introduction to Machine Learning
Course Link: https://example.com/ml
Course Instructor: Andrew Ng

Lesson 0: Welcome
Lesson Link: https://example.com/ml/0
Welcome to machine learning. This course covers supervised learning.
Lesson 1: Linear Regression
Lesson Link: https://example.com/ml/1
Linear regression fits a line through data points using gradient descent.
`

const pastaCourse = `Course Title: Cooking with Pasta
Course Instructor: Maria Rossi

Lesson 1: Boiling Water
Salt the water generously before adding the pasta.
Lesson 2: Sauces
A tomato sauce needs garlic, olive oil and patience.
`

var errEmbed = errors.New("embedding backend down")

// flakyEmbedder wraps a real embedder and fails on demand.
type flakyEmbedder struct {
	driven.EmbeddingService
	failEmbed bool
	failBatch bool
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failEmbed {
		return nil, errEmbed
	}
	return f.EmbeddingService.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.failBatch {
		return nil, errEmbed
	}
	return f.EmbeddingService.EmbedBatch(ctx, texts)
}

// testIndex bundles a course index with its backing collections.
type testIndex struct {
	*CourseIndex
	embedder *flakyEmbedder
	catalog  *memory.VectorCollection
	content  *memory.VectorCollection
}

func testRetrieval() domain.RetrievalSettings {
	return domain.DefaultSettings().Retrieval
}

func newTestIndex(t *testing.T) *testIndex {
	t.Helper()
	return newTestIndexWith(t, testRetrieval())
}

func newTestIndexWith(t *testing.T, retrieval domain.RetrievalSettings) *testIndex {
	t.Helper()
	embedder := &flakyEmbedder{EmbeddingService: hashing.NewEmbeddingService(512)}
	catalog := memory.NewVectorCollection(driven.CollectionCatalog)
	content := memory.NewVectorCollection(driven.CollectionContent)

	index, err := NewCourseIndex(embedder, catalog, content, retrieval)
	require.NoError(t, err)
	return &testIndex{CourseIndex: index, embedder: embedder, catalog: catalog, content: content}
}

// newIngestedIndex returns an index holding both test courses.
func newIngestedIndex(t *testing.T) (*testIndex, *IngestService) {
	t.Helper()
	index := newTestIndex(t)
	ingest := newTestIngest(t, index, nil)
	for name, doc := range map[string]string{"ml.txt": mlCourse, "pasta.txt": pastaCourse} {
		_, err := ingest.IngestDocument(context.Background(), name, doc)
		require.NoError(t, err)
	}
	return index, ingest
}

// scriptedLLM replays canned responses and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*driven.ChatResponse
	err       error
	requests  []driven.ChatRequest
}

func (s *scriptedLLM) Chat(_ context.Context, req driven.ChatRequest) (*driven.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req.Messages = append([]domain.Message(nil), req.Messages...)
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &driven.ChatResponse{Content: "fallback answer"}, nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func (s *scriptedLLM) ModelName() string            { return "scripted" }
func (s *scriptedLLM) Ping(_ context.Context) error { return nil }
func (s *scriptedLLM) Close() error                 { return nil }

func (s *scriptedLLM) calls() []driven.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]driven.ChatRequest(nil), s.requests...)
}

// stubPrompts returns a fixed prompt or error.
type stubPrompts struct {
	prompt string
	err    error
}

func (p *stubPrompts) Load(_ string) (string, error) { return p.prompt, p.err }
func (p *stubPrompts) Reload()                       {}

// stubTool is a tool with canned output.
type stubTool struct {
	name    string
	result  domain.ToolResult
	err     error
	calls   int
	lastArg string
}

func (s *stubTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{Name: s.name, Description: "stub", Parameters: map[string]any{"type": "object"}}
}

func (s *stubTool) Execute(_ context.Context, args json.RawMessage) (domain.ToolResult, error) {
	s.calls++
	s.lastArg = string(args)
	return s.result, s.err
}

// stubSource is a DocumentSource over fixed documents.
type stubSource struct {
	docs    []driven.RawDocument
	listErr error
	watch   chan driven.RawDocument
}

func (s *stubSource) List(_ context.Context) ([]driven.RawDocument, error) {
	return s.docs, s.listErr
}

func (s *stubSource) Read(_ context.Context, path string) (*driven.RawDocument, error) {
	for _, d := range s.docs {
		if d.Path == path {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubSource) Watch(_ context.Context) (<-chan driven.RawDocument, <-chan error) {
	errs := make(chan error)
	close(errs)
	return s.watch, errs
}

func toolCall(id, name, args string) domain.ToolCall {
	return domain.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}
