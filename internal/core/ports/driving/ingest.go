package driving

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// IngestService turns course documents into index records.
type IngestService interface {
	// IngestDocument parses, chunks and indexes a single document.
	// An existing course with the same title is replaced.
	IngestDocument(ctx context.Context, name, content string) (*IngestReport, error)

	// IngestFolder ingests every document from the configured source.
	// Malformed documents are skipped and reported, never fatal.
	IngestFolder(ctx context.Context, opts FolderOptions) (*FolderReport, error)

	// Watch re-ingests documents as they change until ctx is cancelled.
	Watch(ctx context.Context) error

	// RemoveCourse resolves a fuzzy course name and deletes the course from
	// both collections. Returns the removed title, or ErrNotFound.
	RemoveCourse(ctx context.Context, name string) (string, error)
}

// FolderOptions controls folder ingestion.
type FolderOptions struct {
	// ClearExisting empties both collections before ingesting.
	ClearExisting bool

	// SkipExisting leaves courses already in the catalog untouched.
	SkipExisting bool
}

// IngestReport describes one ingested course.
type IngestReport struct {
	Course   domain.Course
	Chunks   int
	Warnings []string
}

// SkippedDocument records a document that could not be ingested.
type SkippedDocument struct {
	Path   string
	Reason string
}

// FolderReport summarises a folder ingestion.
type FolderReport struct {
	// Courses is the number of courses written.
	Courses int

	// Chunks is the number of content records written.
	Chunks int

	// Existing is the number of documents left alone by SkipExisting.
	Existing int

	// Skipped lists documents that failed, ordered by path.
	Skipped []SkippedDocument
}
