package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// Tool names exposed to MCP clients.
const (
	toolSearch  = "search_course_content"
	toolOutline = "get_course_outline"
	toolAsk     = "ask_courses"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"what to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema:"course title, partial matches work"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema:"lesson number to search within"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Label        string  `json:"label"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	Content      string  `json:"content"`
	Distance     float64 `json:"distance"`
}

// OutlineInput is the input schema for the outline tool.
type OutlineInput struct {
	CourseTitle string `json:"course_title" jsonschema:"course title, partial matches work"`
}

// OutlineOutput is the output schema for the outline tool.
type OutlineOutput struct {
	Title      string         `json:"title"`
	Link       string         `json:"link,omitempty"`
	Instructor string         `json:"instructor,omitempty"`
	Lessons    []LessonOutput `json:"lessons"`
}

// LessonOutput is one lesson in an outline.
type LessonOutput struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question about the course materials"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue, omit to start a new one"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string          `json:"answer"`
	Sources   []domain.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolSearch,
		Description: "Search course materials with optional course name and lesson filters",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolOutline,
		Description: "Get a course outline: title, link, instructor and the numbered lesson list",
	}, s.handleOutline)

	if s.ports.Ask != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        toolAsk,
			Description: "Ask a question about the ingested courses and get a cited answer",
		}, s.handleAsk)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	results, err := s.ports.Catalog.Search(ctx, input.Query, input.CourseName, input.LessonNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, SearchOutput{}, fmt.Errorf("no course found matching '%s'", input.CourseName)
		}
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			Label:        results[i].Label(),
			CourseTitle:  results[i].CourseTitle,
			LessonNumber: results[i].LessonNumber,
			Content:      results[i].Content,
			Distance:     results[i].Distance,
		}
	}

	return nil, output, nil
}

// handleOutline handles the outline tool invocation.
func (s *Server) handleOutline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OutlineInput,
) (*mcp.CallToolResult, OutlineOutput, error) {
	if strings.TrimSpace(input.CourseTitle) == "" {
		return nil, OutlineOutput{}, errors.New("course_title is required")
	}

	outline, err := s.ports.Catalog.Outline(ctx, input.CourseTitle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, OutlineOutput{}, fmt.Errorf("no course found matching '%s'", input.CourseTitle)
		}
		return nil, OutlineOutput{}, err
	}

	return nil, outlineOutput(outline), nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Ask.Ask(ctx, input.SessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{
		Answer:    answer.Text,
		Sources:   sources,
		SessionID: answer.SessionID,
	}, nil
}

func outlineOutput(outline *domain.CourseOutline) OutlineOutput {
	out := OutlineOutput{
		Title:      outline.Title,
		Link:       outline.Link,
		Instructor: outline.Instructor,
		Lessons:    make([]LessonOutput, len(outline.Lessons)),
	}
	for i, l := range outline.Lessons {
		out.Lessons[i] = LessonOutput{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	return out
}
