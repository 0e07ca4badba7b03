package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

func testGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{MaxToolRounds: 2, MaxTokens: 800}
}

func newStubManager(t *testing.T, tools ...Tool) *ToolManager {
	t.Helper()
	m := NewToolManager()
	for _, tool := range tools {
		require.NoError(t, m.Register(tool))
	}
	return m
}

func TestNewGenerator_Validation(t *testing.T) {
	_, err := NewGenerator(nil, nil, nil, testGeneratorConfig())
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = NewGenerator(&scriptedLLM{}, nil, nil, GeneratorConfig{MaxToolRounds: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	g, err := NewGenerator(&scriptedLLM{}, nil, nil, GeneratorConfig{MaxToolRounds: 1})
	require.NoError(t, err)
	assert.Equal(t, 800, g.cfg.MaxTokens)
}

func TestLoopState_String(t *testing.T) {
	assert.Equal(t, "AWAITING_MODEL", stateAwaitingModel.String())
	assert.Equal(t, "EXECUTING_TOOLS", stateExecutingTools.String())
	assert.Equal(t, "DONE", stateDone.String())
	assert.Equal(t, "UNKNOWN", loopState(42).String())
}

func TestGenerate_DirectAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{{Content: "Paris."}}}
	search := &stubTool{name: ToolSearchCourseContent}
	g, err := NewGenerator(llm, newStubManager(t, search), &stubPrompts{prompt: "be brief"}, testGeneratorConfig())
	require.NoError(t, err)

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	}
	gen, err := g.Generate(context.Background(), history, "Capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "Paris.", gen.Text)
	assert.Zero(t, gen.Rounds)
	assert.Empty(t, gen.Sources)
	assert.Zero(t, search.calls)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "be brief", calls[0].System)
	assert.Equal(t, 800, calls[0].MaxTokens)
	assert.Zero(t, calls[0].Temperature)
	require.Len(t, calls[0].Tools, 1)
	require.Len(t, calls[0].Messages, 3)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "Capital of France?"}, calls[0].Messages[2])
}

func TestGenerate_OneToolRound(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		{ToolCalls: []domain.ToolCall{toolCall("call_1", "search", `{"query":"regression"}`)}},
		{Content: "Regression fits a line."},
	}}
	search := &stubTool{name: "search", result: domain.ToolResult{
		Content: "[ML - Lesson 1]\nfits a line",
		Sources: []domain.Source{{Text: "ML - Lesson 1", URL: "https://example.com/1"}},
	}}
	manager := newStubManager(t, search)
	g, err := NewGenerator(llm, manager, nil, testGeneratorConfig())
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), nil, "What is regression?")
	require.NoError(t, err)

	assert.Equal(t, "Regression fits a line.", gen.Text)
	assert.Equal(t, 1, gen.Rounds)
	assert.Equal(t, []domain.Source{{Text: "ML - Lesson 1", URL: "https://example.com/1"}}, gen.Sources)
	assert.Equal(t, 1, search.calls)
	assert.Empty(t, manager.LastSources(), "generation clears the manager slot")

	calls := llm.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, fallbackSystemPrompt, calls[0].System)
	assert.NotEmpty(t, calls[1].Tools, "tools stay available while rounds remain")

	transcript := calls[1].Messages
	require.Len(t, transcript, 3)
	assert.Equal(t, domain.RoleAssistant, transcript[1].Role)
	require.Len(t, transcript[1].ToolCalls, 1)
	assert.Equal(t, domain.Message{
		Role:       domain.RoleTool,
		Content:    "[ML - Lesson 1]\nfits a line",
		ToolCallID: "call_1",
		Name:       "search",
	}, transcript[2])
}

func TestGenerate_RoundBound(t *testing.T) {
	wantsTool := &driven.ChatResponse{ToolCalls: []domain.ToolCall{toolCall("c", "search", `{}`)}}
	final := &driven.ChatResponse{
		Content:   "Best effort answer.",
		ToolCalls: []domain.ToolCall{toolCall("ignored", "search", `{}`)},
	}
	llm := &scriptedLLM{responses: []*driven.ChatResponse{wantsTool, wantsTool, final}}
	search := &stubTool{name: "search", result: domain.ToolResult{Content: "r"}}
	g, err := NewGenerator(llm, newStubManager(t, search), nil, testGeneratorConfig())
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), nil, "q")
	require.NoError(t, err)

	assert.Equal(t, "Best effort answer.", gen.Text)
	assert.Equal(t, 2, gen.Rounds)
	assert.Equal(t, 2, search.calls, "tool calls in the final response are ignored")

	calls := llm.calls()
	require.Len(t, calls, 3)
	assert.NotEmpty(t, calls[0].Tools)
	assert.NotEmpty(t, calls[1].Tools)
	assert.Empty(t, calls[2].Tools, "final request is sent without tools")
	// user, then (assistant, tool) per round
	assert.Len(t, calls[2].Messages, 5)
}

func TestGenerate_ToolFailuresBecomeText(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		{ToolCalls: []domain.ToolCall{
			toolCall("a", "broken", `{}`),
			toolCall("b", "missing_tool", `{}`),
			toolCall("c", "search", `{}`),
		}},
		{Content: "done"},
	}}
	broken := &stubTool{name: "broken", err: errors.New("index offline")}
	search := &stubTool{name: "search", result: domain.ToolResult{
		Content: "ok",
		Sources: []domain.Source{{Text: "S"}},
	}}
	g, err := NewGenerator(llm, newStubManager(t, broken, search), nil, testGeneratorConfig())
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), nil, "q")
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{{Text: "S"}}, gen.Sources)

	transcript := llm.calls()[1].Messages
	require.Len(t, transcript, 5)
	assert.Equal(t, "Error: Tool execution failed - index offline", transcript[2].Content)
	assert.Equal(t, "a", transcript[2].ToolCallID)
	assert.Contains(t, transcript[3].Content, "Error: Tool execution failed - tool not found")
	assert.Equal(t, "ok", transcript[4].Content)
}

func TestGenerate_SourcesMergedAcrossCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{
		{ToolCalls: []domain.ToolCall{toolCall("a", "one", `{}`), toolCall("b", "two", `{}`)}},
		{Content: "done"},
	}}
	one := &stubTool{name: "one", result: domain.ToolResult{Sources: []domain.Source{{Text: "X"}, {Text: "Y"}}}}
	two := &stubTool{name: "two", result: domain.ToolResult{Sources: []domain.Source{{Text: "Y"}, {Text: "Z"}}}}
	g, err := NewGenerator(llm, newStubManager(t, one, two), nil, testGeneratorConfig())
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), nil, "q")
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{{Text: "X"}, {Text: "Y"}, {Text: "Z"}}, gen.Sources)
}

func TestGenerate_LLMErrorIsGenerationError(t *testing.T) {
	cause := errors.New("503 from provider")
	llm := &scriptedLLM{err: cause}
	g, err := NewGenerator(llm, nil, nil, testGeneratorConfig())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), nil, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, llm.calls(), 1, "no retry")
}

func TestGenerate_CancelledContext(t *testing.T) {
	llm := &scriptedLLM{}
	g, err := NewGenerator(llm, nil, nil, testGeneratorConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, nil, "q")
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, llm.calls())
}

func TestGenerate_NoToolsRegistered(t *testing.T) {
	llm := &scriptedLLM{responses: []*driven.ChatResponse{{
		Content:   "plain",
		ToolCalls: []domain.ToolCall{toolCall("a", "search", `{}`)},
	}}}
	g, err := NewGenerator(llm, nil, nil, testGeneratorConfig())
	require.NoError(t, err)

	gen, err := g.Generate(context.Background(), nil, "q")
	require.NoError(t, err)
	assert.Equal(t, "plain", gen.Text)
	assert.Empty(t, llm.calls()[0].Tools)
}

func TestGenerate_PromptFallback(t *testing.T) {
	llm := &scriptedLLM{}
	g, err := NewGenerator(llm, nil, &stubPrompts{err: errors.New("no file")}, testGeneratorConfig())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), nil, "q")
	require.NoError(t, err)
	assert.Equal(t, fallbackSystemPrompt, llm.calls()[0].System)
}
