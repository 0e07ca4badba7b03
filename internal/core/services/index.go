package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/logger"
)

// CourseIndex keeps two independently embedded collections: a catalog with
// one record per course and a content collection with one record per chunk.
// The collections are never joined; only the course title and lesson number
// stored on content records link them.
type CourseIndex struct {
	embedder           driven.EmbeddingService
	catalog            driven.VectorCollection
	content            driven.VectorCollection
	maxResults         int
	resolveMaxDistance float64
}

// NewCourseIndex creates a course index.
// A non-positive result limit or a resolve distance outside (0, 2] is a
// configuration error.
func NewCourseIndex(
	embedder driven.EmbeddingService,
	catalog driven.VectorCollection,
	content driven.VectorCollection,
	retrieval domain.RetrievalSettings,
) (*CourseIndex, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if catalog == nil || content == nil {
		return nil, fmt.Errorf("%w: catalog and content collections are required", domain.ErrInvalidConfig)
	}
	if retrieval.MaxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", domain.ErrInvalidConfig, retrieval.MaxResults)
	}
	if retrieval.ResolveMaxDistance <= 0 || retrieval.ResolveMaxDistance > 2 {
		return nil, fmt.Errorf("%w: resolve distance must be in (0, 2], got %g",
			domain.ErrInvalidConfig, retrieval.ResolveMaxDistance)
	}

	return &CourseIndex{
		embedder:           embedder,
		catalog:            catalog,
		content:            content,
		maxResults:         retrieval.MaxResults,
		resolveMaxDistance: retrieval.ResolveMaxDistance,
	}, nil
}

// MaxResults returns the configured result limit.
func (x *CourseIndex) MaxResults() int {
	return x.maxResults
}

// ==================== Writes ====================

// UpsertCourseMetadata writes or overwrites the catalog record for a course.
// The record is keyed by title and embeds the title and instructor.
func (x *CourseIndex) UpsertCourseMetadata(ctx context.Context, course domain.Course) error {
	if strings.TrimSpace(course.Title) == "" {
		return domain.ErrMissingCourseTitle
	}

	outline := domain.OutlineOf(course)
	lessons, err := json.Marshal(lessonsToRecords(outline.Lessons))
	if err != nil {
		return fmt.Errorf("encode lessons: %w", err)
	}

	document := catalogDocument(outline)
	embedding, err := x.embedder.Embed(ctx, document)
	if err != nil {
		return fmt.Errorf("embed catalog record %q: %w", outline.Title, err)
	}

	record := driven.VectorRecord{
		ID:        outline.Title,
		Document:  document,
		Embedding: embedding,
		Metadata: map[string]any{
			driven.MetaCourseTitle: outline.Title,
			driven.MetaInstructor:  outline.Instructor,
			driven.MetaCourseLink:  outline.Link,
			driven.MetaLessonsJSON: string(lessons),
			driven.MetaLessonCount: len(outline.Lessons),
		},
	}

	logger.Debug("Upserting catalog record %q (%d lessons)", outline.Title, len(outline.Lessons))
	return x.catalog.Upsert(ctx, []driven.VectorRecord{record})
}

// ReplaceCourseContent swaps every content record of a course for the given
// chunks. All chunks are embedded before anything is written, so an embedding
// failure leaves the previous content in place. Catalog metadata is untouched.
func (x *CourseIndex) ReplaceCourseContent(ctx context.Context, title string, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.CourseTitle != title {
			return fmt.Errorf("%w: chunk %d belongs to %q, not %q", domain.ErrInvalidInput, i, c.CourseTitle, title)
		}
		texts[i] = c.Content
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		var err error
		embeddings, err = x.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed content for %q: %w", title, err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embed content for %q: got %d embeddings for %d chunks", title, len(embeddings), len(texts))
		}
	}

	records := make([]driven.VectorRecord, len(chunks))
	for i, c := range chunks {
		metadata := map[string]any{
			driven.MetaCourseTitle: c.CourseTitle,
			driven.MetaChunkIndex:  c.Index,
		}
		if c.LessonNumber != nil {
			metadata[driven.MetaLessonNumber] = *c.LessonNumber
		}
		records[i] = driven.VectorRecord{
			ID:        c.ID(),
			Document:  c.Content,
			Embedding: embeddings[i],
			Metadata:  metadata,
		}
	}

	logger.Debug("Replacing content of %q with %d chunks", title, len(records))
	return x.content.Replace(ctx, driven.VectorFilter{driven.MetaCourseTitle: title}, records)
}

// DeleteCourse removes a course from both collections.
func (x *CourseIndex) DeleteCourse(ctx context.Context, title string) error {
	filter := driven.VectorFilter{driven.MetaCourseTitle: title}
	if err := x.content.Delete(ctx, filter); err != nil {
		return fmt.Errorf("delete content of %q: %w", title, err)
	}
	if err := x.catalog.Delete(ctx, filter); err != nil {
		return fmt.Errorf("delete catalog record %q: %w", title, err)
	}
	return nil
}

// Clear empties both collections.
func (x *CourseIndex) Clear(ctx context.Context) error {
	if err := x.content.Delete(ctx, nil); err != nil {
		return fmt.Errorf("clear content: %w", err)
	}
	if err := x.catalog.Delete(ctx, nil); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	return nil
}

// ==================== Reads ====================

// ResolveCourseName maps a fuzzy course name to an exact catalog title.
// An exact case-insensitive title match wins outright, as does a name contained
// in exactly one title. Otherwise the nearest catalog record is used when its
// distance is within the resolve threshold.
func (x *CourseIndex) ResolveCourseName(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}

	titles, err := x.ListCourseTitles(ctx)
	if err != nil {
		return "", false, err
	}
	if len(titles) == 0 {
		return "", false, nil
	}
	var containing []string
	for _, title := range titles {
		if strings.EqualFold(title, name) {
			return title, true, nil
		}
		if strings.Contains(strings.ToLower(title), strings.ToLower(name)) {
			containing = append(containing, title)
		}
	}
	if len(containing) == 1 {
		return containing[0], true, nil
	}

	embedding, err := x.embedder.Embed(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("embed course name: %w", err)
	}

	matches, err := x.catalog.Query(ctx, embedding, nil, 1)
	if err != nil {
		return "", false, fmt.Errorf("query catalog: %w", err)
	}
	if len(matches) == 0 {
		return "", false, nil
	}

	best := matches[0]
	logger.Debug("Resolved %q to %q at distance %.3f (max %.3f)",
		name, best.Record.ID, best.Distance, x.resolveMaxDistance)
	if best.Distance > x.resolveMaxDistance {
		return "", false, nil
	}
	return best.Record.ID, true, nil
}

// QueryContent searches the content collection.
// Results are ordered closest first and capped at limit; a non-positive limit
// is a configuration error rather than an empty result.
func (x *CourseIndex) QueryContent(
	ctx context.Context, query string, filter domain.ContentFilter, limit int,
) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive, got %d", domain.ErrInvalidConfig, limit)
	}

	embedding, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var vf driven.VectorFilter
	if !filter.IsEmpty() {
		vf = driven.VectorFilter{}
		if filter.CourseTitle != "" {
			vf[driven.MetaCourseTitle] = filter.CourseTitle
		}
		if filter.LessonNumber != nil {
			vf[driven.MetaLessonNumber] = *filter.LessonNumber
		}
	}

	matches, err := x.content.Query(ctx, embedding, vf, limit)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResultFromRecord(m))
	}
	return results, nil
}

// ListCourseTitles returns every catalog title in sorted order.
func (x *CourseIndex) ListCourseTitles(ctx context.Context) ([]string, error) {
	records, err := x.catalog.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	titles := make([]string, 0, len(records))
	for _, r := range records {
		titles = append(titles, r.ID)
	}
	sort.Strings(titles)
	return titles, nil
}

// CourseCount returns the number of catalog records.
func (x *CourseIndex) CourseCount(ctx context.Context) (int, error) {
	return x.catalog.Count(ctx)
}

// HasCourse returns true if a catalog record with this exact title exists.
func (x *CourseIndex) HasCourse(ctx context.Context, title string) (bool, error) {
	_, err := x.catalog.Get(ctx, title)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetCourseOutline resolves a fuzzy course name and returns its catalog record.
// Returns ErrNotFound if nothing resolves.
func (x *CourseIndex) GetCourseOutline(ctx context.Context, name string) (*domain.CourseOutline, error) {
	title, ok, err := x.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("course %q: %w", name, domain.ErrNotFound)
	}
	return x.outline(ctx, title)
}

// LessonLink returns the link of a lesson, or "" when either the course or
// the lesson is unknown.
func (x *CourseIndex) LessonLink(ctx context.Context, title string, lesson int) (string, error) {
	outline, err := x.outline(ctx, title)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	for _, l := range outline.Lessons {
		if l.Number == lesson {
			return l.Link, nil
		}
	}
	return "", nil
}

func (x *CourseIndex) outline(ctx context.Context, title string) (*domain.CourseOutline, error) {
	record, err := x.catalog.Get(ctx, title)
	if err != nil {
		return nil, err
	}
	return outlineFromRecord(record)
}

// ==================== Helpers ====================

// lessonRecord is the serialized lesson stored in catalog metadata.
type lessonRecord struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

func lessonsToRecords(lessons []domain.Lesson) []lessonRecord {
	out := make([]lessonRecord, len(lessons))
	for i, l := range lessons {
		out[i] = lessonRecord{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	return out
}

func catalogDocument(c domain.CourseOutline) string {
	if c.Instructor == "" {
		return c.Title
	}
	return c.Title + "\n" + c.Instructor
}

func outlineFromRecord(r *driven.VectorRecord) (*domain.CourseOutline, error) {
	outline := &domain.CourseOutline{
		Title:      r.ID,
		Instructor: metaString(r.Metadata, driven.MetaInstructor),
		Link:       metaString(r.Metadata, driven.MetaCourseLink),
	}

	if raw := metaString(r.Metadata, driven.MetaLessonsJSON); raw != "" {
		var lessons []lessonRecord
		if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
			return nil, fmt.Errorf("decode lessons of %q: %w", r.ID, err)
		}
		for _, l := range lessons {
			outline.Lessons = append(outline.Lessons, domain.Lesson{Number: l.Number, Title: l.Title, Link: l.Link})
		}
	}
	return outline, nil
}

func searchResultFromRecord(m driven.VectorMatch) domain.SearchResult {
	result := domain.SearchResult{
		Content:     m.Record.Document,
		CourseTitle: metaString(m.Record.Metadata, driven.MetaCourseTitle),
		Distance:    m.Distance,
	}
	if n, ok := metaInt(m.Record.Metadata, driven.MetaLessonNumber); ok {
		result.LessonNumber = domain.IntPtr(n)
	}
	if n, ok := metaInt(m.Record.Metadata, driven.MetaChunkIndex); ok {
		result.ChunkIndex = n
	}
	return result
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
