package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/logger"
)

// Tool names exposed to the model.
const (
	ToolSearchCourseContent = "search_course_content"
	ToolGetCourseOutline    = "get_course_outline"
)

// Tool is a capability the model can call mid-conversation.
type Tool interface {
	// Definition describes the tool to the model.
	Definition() domain.ToolDefinition

	// Execute runs the tool with raw JSON arguments.
	// Each call returns its own result; tools hold no per-call state.
	Execute(ctx context.Context, args json.RawMessage) (domain.ToolResult, error)
}

// CourseSearcher is the part of the course index the tools need.
type CourseSearcher interface {
	ResolveCourseName(ctx context.Context, name string) (string, bool, error)
	QueryContent(ctx context.Context, query string, filter domain.ContentFilter, limit int) ([]domain.SearchResult, error)
	GetCourseOutline(ctx context.Context, name string) (*domain.CourseOutline, error)
	LessonLink(ctx context.Context, title string, lesson int) (string, error)
}

// Ensure CourseIndex satisfies the tools' needs.
var _ CourseSearcher = (*CourseIndex)(nil)

// ==================== Search tool ====================

// SearchTool searches course content with optional course and lesson filters.
type SearchTool struct {
	index CourseSearcher
	limit int
}

// NewSearchTool creates a content search tool returning at most limit results.
func NewSearchTool(index CourseSearcher, limit int) (*SearchTool, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive, got %d", domain.ErrInvalidConfig, limit)
	}
	return &SearchTool{index: index, limit: limit}, nil
}

// Definition returns the search tool schema.
func (t *SearchTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        ToolSearchCourseContent,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Execute runs a search. An unresolvable course name or an empty result set
// is reported as text for the model, not as an error.
func (t *SearchTool) Execute(ctx context.Context, raw json.RawMessage) (domain.ToolResult, error) {
	var args searchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return domain.ToolResult{}, err
	}
	if strings.TrimSpace(args.Query) == "" {
		return domain.ToolResult{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	filter := domain.ContentFilter{LessonNumber: args.LessonNumber}
	if args.CourseName != "" {
		title, ok, err := t.index.ResolveCourseName(ctx, args.CourseName)
		if err != nil {
			return domain.ToolResult{}, err
		}
		if !ok {
			return domain.ToolResult{Content: fmt.Sprintf("No course found matching '%s'.", args.CourseName)}, nil
		}
		filter.CourseTitle = title
	}

	logger.Debug("search_course_content query=%q course=%q lesson=%v", args.Query, filter.CourseTitle, args.LessonNumber)
	results, err := t.index.QueryContent(ctx, args.Query, filter, t.limit)
	if err != nil {
		return domain.ToolResult{}, err
	}

	if len(results) == 0 {
		msg := "No relevant content found"
		if filter.CourseTitle != "" {
			msg += fmt.Sprintf(" in course '%s'", filter.CourseTitle)
		}
		if filter.LessonNumber != nil {
			msg += fmt.Sprintf(" in lesson %d", *filter.LessonNumber)
		}
		return domain.ToolResult{Content: msg + "."}, nil
	}

	return t.format(ctx, results)
}

func (t *SearchTool) format(ctx context.Context, results []domain.SearchResult) (domain.ToolResult, error) {
	blocks := make([]string, 0, len(results))
	var sources []domain.Source

	for _, r := range results {
		label := r.Label()
		blocks = append(blocks, "["+label+"]\n"+r.Content)

		source := domain.Source{Text: label}
		if r.LessonNumber != nil {
			link, err := t.index.LessonLink(ctx, r.CourseTitle, *r.LessonNumber)
			if err != nil {
				return domain.ToolResult{}, err
			}
			source.URL = link
		}
		sources = domain.MergeSources(sources, source)
	}

	return domain.ToolResult{Content: strings.Join(blocks, "\n\n"), Sources: sources}, nil
}

// ==================== Outline tool ====================

// OutlineTool returns a course's title, link, instructor and lesson list.
type OutlineTool struct {
	index CourseSearcher
}

// NewOutlineTool creates a course outline tool.
func NewOutlineTool(index CourseSearcher) *OutlineTool {
	return &OutlineTool{index: index}
}

// Definition returns the outline tool schema.
func (t *OutlineTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        ToolGetCourseOutline,
		Description: "Get the complete outline and structure of a course, including all lessons",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_title": map[string]any{
					"type":        "string",
					"description": "The course title or name (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			"required": []string{"course_title"},
		},
	}
}

type outlineArgs struct {
	CourseTitle string `json:"course_title"`
}

// Execute looks up a course outline.
func (t *OutlineTool) Execute(ctx context.Context, raw json.RawMessage) (domain.ToolResult, error) {
	var args outlineArgs
	if err := decodeArgs(raw, &args); err != nil {
		return domain.ToolResult{}, err
	}
	if strings.TrimSpace(args.CourseTitle) == "" {
		return domain.ToolResult{}, fmt.Errorf("%w: course_title is required", domain.ErrInvalidInput)
	}

	outline, err := t.index.GetCourseOutline(ctx, args.CourseTitle)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ToolResult{Content: fmt.Sprintf("No course found matching '%s'.", args.CourseTitle)}, nil
	}
	if err != nil {
		return domain.ToolResult{}, err
	}

	return domain.ToolResult{Content: FormatOutline(outline)}, nil
}

// FormatOutline renders an outline as plain text.
func FormatOutline(o *domain.CourseOutline) string {
	parts := []string{"Course: " + o.Title}
	if o.Link != "" {
		parts = append(parts, "Link: "+o.Link)
	}
	if o.Instructor != "" {
		parts = append(parts, "Instructor: "+o.Instructor)
	}
	if len(o.Lessons) > 0 {
		parts = append(parts, "\nLessons ("+strconv.Itoa(len(o.Lessons))+" total):")
		for _, l := range o.Lessons {
			parts = append(parts, fmt.Sprintf("  Lesson %d: %s", l.Number, l.Title))
		}
	}
	return strings.Join(parts, "\n")
}

// ==================== Expert tool ====================

// ExpertTool forwards out-of-course questions to an external expert.
// Its name and description come from settings.
type ExpertTool struct {
	expert      driven.ExpertService
	name        string
	description string
}

// NewExpertTool creates an expert tool.
func NewExpertTool(expert driven.ExpertService, name, description string) (*ExpertTool, error) {
	if expert == nil {
		return nil, fmt.Errorf("%w: expert service is required", domain.ErrInvalidConfig)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: expert tool name is required", domain.ErrInvalidConfig)
	}
	return &ExpertTool{expert: expert, name: name, description: description}, nil
}

// Definition returns the expert tool schema.
func (t *ExpertTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask the expert",
				},
			},
			"required": []string{"question"},
		},
	}
}

type expertArgs struct {
	Question string `json:"question"`
}

// Execute asks the expert. Transport and auth failures are returned as
// errors; the generator reports them to the model as text.
func (t *ExpertTool) Execute(ctx context.Context, raw json.RawMessage) (domain.ToolResult, error) {
	var args expertArgs
	if err := decodeArgs(raw, &args); err != nil {
		return domain.ToolResult{}, err
	}
	if strings.TrimSpace(args.Question) == "" {
		return domain.ToolResult{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	logger.Debug("%s question=%q", t.name, args.Question)
	answer, err := t.expert.Ask(ctx, args.Question)
	if err != nil {
		return domain.ToolResult{}, fmt.Errorf("%s: %w", t.name, err)
	}
	if strings.TrimSpace(answer.Text) == "" {
		return domain.ToolResult{Content: "The expert returned no answer."}, nil
	}
	return domain.ToolResult{Content: answer.Text, Sources: answer.Sources}, nil
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed tool arguments: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// ==================== Tool manager ====================

// ToolManager is the registry of tools offered to the model.
// It also keeps the sources of the most recent execution for callers that
// read citations after the fact.
type ToolManager struct {
	mu          sync.Mutex
	tools       map[string]Tool
	order       []string
	lastSources []domain.Source
}

// NewToolManager creates an empty tool registry.
func NewToolManager() *ToolManager {
	return &ToolManager{tools: make(map[string]Tool)}
}

// Register adds a tool. Empty or duplicate names are rejected.
func (m *ToolManager) Register(tool Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("%w: tool has no name", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tools[name]; exists {
		return fmt.Errorf("tool %q: %w", name, domain.ErrAlreadyExists)
	}
	m.tools[name] = tool
	m.order = append(m.order, name)
	return nil
}

// Definitions returns the tool schemas in registration order.
func (m *ToolManager) Definitions() []domain.ToolDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]domain.ToolDefinition, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}
	return defs
}

// Execute runs a named tool. Unknown names return ErrToolNotFound.
func (m *ToolManager) Execute(ctx context.Context, name string, args json.RawMessage) (domain.ToolResult, error) {
	m.mu.Lock()
	tool, ok := m.tools[name]
	m.mu.Unlock()
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return domain.ToolResult{}, err
	}

	m.mu.Lock()
	m.lastSources = append([]domain.Source(nil), result.Sources...)
	m.mu.Unlock()
	return result, nil
}

// LastSources returns the sources of the most recent successful execution.
func (m *ToolManager) LastSources() []domain.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Source(nil), m.lastSources...)
}

// ResetSources clears the most recent sources.
func (m *ToolManager) ResetSources() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSources = nil
}
