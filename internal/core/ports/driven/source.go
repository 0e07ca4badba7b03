package driven

import (
	"context"
	"time"
)

// DocumentSource lists and reads raw course documents.
type DocumentSource interface {
	// List returns every supported document under the source root. Documents
	// whose text could not be extracted are returned with Err set.
	List(ctx context.Context) ([]RawDocument, error)

	// Read loads a single document by path.
	Read(ctx context.Context, path string) (*RawDocument, error)

	// Watch emits documents as they are created or modified until ctx is done.
	Watch(ctx context.Context) (<-chan RawDocument, <-chan error)
}

// RawDocument is an unparsed course document.
type RawDocument struct {
	// Path identifies the document within the source.
	Path string

	// Content is the extracted UTF-8 text.
	Content string

	// ModifiedAt is the last modification time.
	ModifiedAt time.Time

	// Err is set when the document exists but its text could not be extracted.
	Err error
}

// TextExtractor turns the bytes of one file format into UTF-8 text.
type TextExtractor interface {
	// Extensions returns the lower-case file extensions handled, with leading dot.
	Extensions() []string

	// Extract returns the document text.
	Extract(ctx context.Context, path string, data []byte) (string, error)
}
