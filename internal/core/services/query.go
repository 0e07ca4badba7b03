package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
	"github.com/custodia-labs/lectern/internal/logger"
)

// Ensure QueryService implements the interfaces.
var (
	_ driving.AskService     = (*QueryService)(nil)
	_ driving.CatalogService = (*QueryService)(nil)
)

// NoAnswerText is returned when the model produced no text at all.
const NoAnswerText = "I couldn't find relevant information to answer that."

// QueryService answers questions and serves catalog queries.
type QueryService struct {
	generator *Generator
	index     *CourseIndex
	sessions  driven.SessionStore
}

// NewQueryService creates a new query service.
// The generator is optional; without it Ask returns ErrLLMUnavailable while
// catalog queries keep working.
func NewQueryService(generator *Generator, index *CourseIndex, sessions driven.SessionStore) *QueryService {
	return &QueryService{
		generator: generator,
		index:     index,
		sessions:  sessions,
	}
}

// CreateSession starts a new empty session.
func (s *QueryService) CreateSession(ctx context.Context) (string, error) {
	return s.sessions.Create(ctx)
}

// Ask answers a question, creating a session when sessionID is empty.
// The exchange is recorded in the session history only on success.
func (s *QueryService) Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.generator == nil {
		return nil, domain.ErrLLMUnavailable
	}

	if sessionID == "" {
		id, err := s.sessions.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	}
	logger.Section("Ask")
	logger.Debug("Session %s, question %q", sessionID, question)

	exchanges, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := domain.NewHistory(len(exchanges))
	for _, e := range exchanges {
		history.Append(e)
	}

	gen, err := s.generator.Generate(ctx, history.Messages(), question)
	if err != nil {
		return nil, err
	}

	text := gen.Text
	if strings.TrimSpace(text) == "" {
		text = NoAnswerText
	}

	if err := s.sessions.Append(ctx, sessionID, domain.Exchange{User: question, Assistant: text}); err != nil {
		return nil, fmt.Errorf("record exchange: %w", err)
	}

	sources := gen.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return &domain.Answer{Text: text, Sources: sources, SessionID: sessionID}, nil
}

// ClearSession drops a session's history.
func (s *QueryService) ClearSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Analytics returns the course count and sorted titles.
func (s *QueryService) Analytics(ctx context.Context) (*domain.CourseAnalytics, error) {
	count, err := s.index.CourseCount(ctx)
	if err != nil {
		return nil, err
	}
	titles, err := s.index.ListCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.CourseAnalytics{TotalCourses: count, CourseTitles: titles}, nil
}

// Outline resolves a fuzzy course name and returns its outline.
func (s *QueryService) Outline(ctx context.Context, courseName string) (*domain.CourseOutline, error) {
	return s.index.GetCourseOutline(ctx, courseName)
}

// Search runs a content search without involving the model.
// An unresolvable course name returns ErrNotFound.
func (s *QueryService) Search(
	ctx context.Context, query, courseName string, lesson *int,
) ([]domain.SearchResult, error) {
	filter := domain.ContentFilter{LessonNumber: lesson}
	if courseName != "" {
		title, ok, err := s.index.ResolveCourseName(ctx, courseName)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("course %q: %w", courseName, domain.ErrNotFound)
		}
		filter.CourseTitle = title
	}
	return s.index.QueryContent(ctx, query, filter, s.index.MaxResults())
}
