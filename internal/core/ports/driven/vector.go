package driven

import "context"

// VectorCollection is one semantic collection in the vector engine.
// The dual-collection index uses two independent instances: one for the
// course catalog and one for content chunks.
type VectorCollection interface {
	// Name returns the collection name.
	Name() string

	// Upsert writes or overwrites records by ID.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Replace atomically deletes every record matching filter and writes records.
	// Readers never observe a state between the delete and the write.
	Replace(ctx context.Context, filter VectorFilter, records []VectorRecord) error

	// Query returns at most k records matching filter, closest first.
	// k must be positive.
	Query(ctx context.Context, embedding []float32, filter VectorFilter, k int) ([]VectorMatch, error)

	// Get returns a record by ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*VectorRecord, error)

	// List returns all records matching filter ordered by ID.
	List(ctx context.Context, filter VectorFilter) ([]VectorRecord, error)

	// Delete removes every record matching filter. An empty filter removes everything.
	Delete(ctx context.Context, filter VectorFilter) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// VectorRecord is a stored document with its embedding and filterable metadata.
type VectorRecord struct {
	// ID is the unique record key.
	ID string

	// Document is the embedded text.
	Document string

	// Embedding is the vector representation of Document.
	Embedding []float32

	// Metadata holds filterable fields. Values are string, int or nil.
	Metadata map[string]any
}

// VectorMatch is a query hit.
type VectorMatch struct {
	Record VectorRecord

	// Distance is the cosine distance (1 - cosine similarity), in [0, 2].
	Distance float64
}

// VectorFilter matches records whose metadata equals every entry.
// Supported values are string and int.
type VectorFilter map[string]any

// Matches reports whether metadata satisfies the filter.
func (f VectorFilter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok || !metadataEqual(got, want) {
			return false
		}
	}
	return true
}

func metadataEqual(a, b any) bool {
	ai, aIsInt := toInt64(a)
	bi, bIsInt := toInt64(b)
	if aIsInt || bIsInt {
		return aIsInt && bIsInt && ai == bi
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// Collection names used by the dual-collection index.
const (
	CollectionCatalog = "course_catalog"
	CollectionContent = "course_content"
)

// Metadata keys shared by the index and the vector adapters.
const (
	MetaCourseTitle  = "course_title"
	MetaLessonNumber = "lesson_number"
	MetaChunkIndex   = "chunk_index"
	MetaInstructor   = "instructor"
	MetaCourseLink   = "course_link"
	MetaLessonsJSON  = "lessons_json"
	MetaLessonCount  = "lesson_count"
)
