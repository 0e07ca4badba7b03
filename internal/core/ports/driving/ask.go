package driving

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// AskService answers questions about the ingested courses.
type AskService interface {
	// Ask answers a question within a session. An empty sessionID starts a new
	// session; the returned answer carries the ID to reuse.
	Ask(ctx context.Context, sessionID, question string) (*domain.Answer, error)

	// ClearSession drops the history of a session.
	ClearSession(ctx context.Context, sessionID string) error
}

// CatalogService exposes read-only catalog queries.
type CatalogService interface {
	// Analytics returns the course count and titles.
	Analytics(ctx context.Context) (*domain.CourseAnalytics, error)

	// Outline resolves a fuzzy course name and returns its outline.
	Outline(ctx context.Context, courseName string) (*domain.CourseOutline, error)

	// Search runs a content search with an optional fuzzy course and lesson filter.
	Search(ctx context.Context, query, courseName string, lesson *int) ([]domain.SearchResult, error)
}
