package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/logger"
)

// fallbackSystemPrompt is used when no prompt store is configured or the
// stored prompt cannot be read.
const fallbackSystemPrompt = `You are an AI assistant specialized in course materials and educational content.
Use get_course_outline for questions about course structure and search_course_content for questions about course content.
Answer general knowledge questions without tools. Provide only the direct answer to what was asked.`

// loopState is a state of the generation loop.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecutingTools
	stateDone
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "AWAITING_MODEL"
	case stateExecutingTools:
		return "EXECUTING_TOOLS"
	case stateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// GeneratorConfig bounds a generation.
type GeneratorConfig struct {
	// MaxToolRounds is the number of tool-calling rounds before the final
	// tool-free request.
	MaxToolRounds int

	// MaxTokens caps each model response.
	MaxTokens int

	// Temperature is passed to every model request.
	Temperature float64
}

// Generation is the outcome of one question.
type Generation struct {
	// Text is the model's final answer. May be empty.
	Text string

	// Sources are the citations of every successful tool call, deduplicated
	// in order of first appearance.
	Sources []domain.Source

	// Rounds is the number of tool-calling rounds that ran.
	Rounds int
}

// Generator drives the bounded tool-calling loop against an LLM.
type Generator struct {
	llm     driven.LLMService
	tools   *ToolManager
	prompts driven.PromptStore
	cfg     GeneratorConfig
}

// NewGenerator creates a generator. The prompt store is optional.
func NewGenerator(
	llm driven.LLMService,
	tools *ToolManager,
	prompts driven.PromptStore,
	cfg GeneratorConfig,
) (*Generator, error) {
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if tools == nil {
		tools = NewToolManager()
	}
	if cfg.MaxToolRounds <= 0 {
		return nil, fmt.Errorf("%w: max tool rounds must be positive, got %d", domain.ErrInvalidConfig, cfg.MaxToolRounds)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = domain.DefaultSettings().LLM.MaxTokens
	}
	return &Generator{llm: llm, tools: tools, prompts: prompts, cfg: cfg}, nil
}

// Generate answers a question given prior conversation messages.
//
// The loop alternates between asking the model and running the tools it
// requests. Tool failures are fed back to the model as text. After
// MaxToolRounds rounds the model is asked once more without tools and its
// text is the answer. Model failures wrap ErrGeneration and are not retried.
func (g *Generator) Generate(ctx context.Context, history []domain.Message, question string) (*Generation, error) {
	logger.Section("Generation")
	defer g.tools.ResetSources()

	messages := make([]domain.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: question})

	system := g.systemPrompt()
	definitions := g.tools.Definitions()

	gen := &Generation{}
	state := stateAwaitingModel
	var resp *driven.ChatResponse

	for state != stateDone {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		logger.Debug("Loop state %s (round %d/%d)", state, gen.Rounds, g.cfg.MaxToolRounds)

		switch state {
		case stateAwaitingModel:
			req := driven.ChatRequest{
				System:      system,
				Messages:    messages,
				MaxTokens:   g.cfg.MaxTokens,
				Temperature: g.cfg.Temperature,
			}
			if gen.Rounds < g.cfg.MaxToolRounds && len(definitions) > 0 {
				req.Tools = definitions
			}

			var err error
			resp, err = g.llm.Chat(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
			}

			if len(req.Tools) > 0 && resp.WantsTools() {
				state = stateExecutingTools
				continue
			}
			if resp.WantsTools() {
				logger.Debug("Ignoring %d tool calls after the final round", len(resp.ToolCalls))
			}
			gen.Text = resp.Content
			state = stateDone

		case stateExecutingTools:
			gen.Rounds++
			messages = append(messages, domain.Message{
				Role:      domain.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
			})

			for _, call := range resp.ToolCalls {
				messages = append(messages, g.runTool(ctx, call, gen))
			}
			state = stateAwaitingModel
		}
	}

	logger.Debug("Generation done after %d tool rounds, %d sources", gen.Rounds, len(gen.Sources))
	return gen, nil
}

// runTool executes one call and renders its outcome as a tool message.
func (g *Generator) runTool(ctx context.Context, call domain.ToolCall, gen *Generation) domain.Message {
	logger.Debug("Tool call %s(%s)", call.Name, string(call.Arguments))

	var content string
	result, err := g.tools.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		logger.Warn("tool %s failed: %v", call.Name, err)
		content = "Error: Tool execution failed - " + err.Error()
	} else {
		content = result.Content
		gen.Sources = domain.MergeSources(gen.Sources, result.Sources...)
	}

	return domain.Message{
		Role:       domain.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

func (g *Generator) systemPrompt() string {
	if g.prompts == nil {
		return fallbackSystemPrompt
	}
	prompt, err := g.prompts.Load(driven.PromptCourseSystem)
	if err != nil || prompt == "" {
		logger.Debug("Using fallback system prompt: %v", err)
		return fallbackSystemPrompt
	}
	return prompt
}
