package mcp

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	analytics *domain.CourseAnalytics
	outline   *domain.CourseOutline
	results   []domain.SearchResult
	err       error

	lastQuery  string
	lastCourse string
	lastLesson *int
}

func (m *mockCatalogService) Analytics(_ context.Context) (*domain.CourseAnalytics, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.analytics, nil
}

func (m *mockCatalogService) Outline(_ context.Context, name string) (*domain.CourseOutline, error) {
	m.lastCourse = name
	return m.outline, m.err
}

func (m *mockCatalogService) Search(
	_ context.Context,
	query, courseName string,
	lesson *int,
) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastCourse, m.lastLesson = query, courseName, lesson
	return m.results, m.err
}

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer *domain.Answer
	err    error

	lastSession  string
	lastQuestion string
}

func (m *mockAskService) Ask(_ context.Context, sessionID, question string) (*domain.Answer, error) {
	m.lastSession, m.lastQuestion = sessionID, question
	return m.answer, m.err
}

func (m *mockAskService) ClearSession(_ context.Context, _ string) error {
	return m.err
}
