package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
	"github.com/custodia-labs/lectern/internal/logger"
	"github.com/custodia-labs/lectern/internal/normalisers/course"
	"github.com/custodia-labs/lectern/internal/postprocessors/chunker"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// ingestConcurrency bounds parallel document ingestion in a folder.
const ingestConcurrency = 4

// IngestService parses, chunks and indexes course documents.
type IngestService struct {
	parser  *course.Parser
	chunker *chunker.Processor
	index   *CourseIndex
	source  driven.DocumentSource

	locks keyedMutex
}

// NewIngestService creates a new ingest service.
// The document source is optional; without it only IngestDocument works.
func NewIngestService(
	parser *course.Parser,
	chunks *chunker.Processor,
	index *CourseIndex,
	source driven.DocumentSource,
) *IngestService {
	return &IngestService{
		parser:  parser,
		chunker: chunks,
		index:   index,
		source:  source,
	}
}

// IngestDocument parses and indexes one document, replacing any course with
// the same title. Writes for one title never interleave.
func (s *IngestService) IngestDocument(ctx context.Context, name, content string) (*driving.IngestReport, error) {
	parsed, err := s.parser.Parse(name, content)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, parsed)
}

// RemoveCourse deletes a course and all of its content.
func (s *IngestService) RemoveCourse(ctx context.Context, name string) (string, error) {
	title, ok, err := s.index.ResolveCourseName(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("course %q: %w", name, domain.ErrNotFound)
	}

	unlock := s.locks.Lock(title)
	defer unlock()

	if err := s.index.DeleteCourse(ctx, title); err != nil {
		return "", err
	}
	logger.Info("Removed course %q", title)
	return title, nil
}

func (s *IngestService) write(ctx context.Context, parsed *course.ParsedCourse) (*driving.IngestReport, error) {
	c := parsed.Course
	if !parsed.HasLessons() {
		logger.Debug("%q has no lesson markers, indexing it as course-level text", c.Title)
	}
	chunks := s.chunker.ChunkCourse(c, parsed.Bodies, parsed.Preamble)
	logger.Debug("%s: %q split into %d chunks (size %d, overlap %d)",
		s.chunker.Name(), c.Title, len(chunks), s.chunker.ChunkSize(), s.chunker.Overlap())

	unlock := s.locks.Lock(c.Title)
	defer unlock()

	if err := s.index.UpsertCourseMetadata(ctx, c); err != nil {
		return nil, fmt.Errorf("index course %q: %w", c.Title, err)
	}
	if err := s.index.ReplaceCourseContent(ctx, c.Title, chunks); err != nil {
		return nil, fmt.Errorf("index content of %q: %w", c.Title, err)
	}

	logger.Info("Ingested %q: %d lessons, %d chunks", c.Title, len(c.Lessons), len(chunks))
	return &driving.IngestReport{
		Course:   c,
		Chunks:   len(chunks),
		Warnings: parsed.Warnings,
	}, nil
}

// IngestFolder ingests every document the source lists. Documents that fail
// to parse or index are logged and reported, never fatal.
func (s *IngestService) IngestFolder(ctx context.Context, opts driving.FolderOptions) (*driving.FolderReport, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: no document source configured", domain.ErrInvalidConfig)
	}
	logger.Section("Folder Ingestion")

	if opts.ClearExisting {
		logger.Info("Clearing existing index")
		if err := s.index.Clear(ctx); err != nil {
			return nil, err
		}
	}

	docs, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	logger.Debug("Found %d documents", len(docs))

	var (
		mu     sync.Mutex
		report = &driving.FolderReport{}
	)
	skip := func(path string, err error) {
		logger.Warn("skipping %s: %v", path, err)
		mu.Lock()
		report.Skipped = append(report.Skipped, driving.SkippedDocument{Path: path, Reason: err.Error()})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)

	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if doc.Err != nil {
				skip(doc.Path, doc.Err)
				return nil
			}
			parsed, err := s.parser.Parse(doc.Path, doc.Content)
			if err != nil {
				skip(doc.Path, err)
				return nil
			}

			if opts.SkipExisting {
				exists, err := s.index.HasCourse(gctx, parsed.Course.Title)
				if err != nil {
					skip(doc.Path, err)
					return nil
				}
				if exists {
					logger.Debug("Course %q already indexed, leaving it", parsed.Course.Title)
					mu.Lock()
					report.Existing++
					mu.Unlock()
					return nil
				}
			}

			result, err := s.write(gctx, parsed)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				skip(doc.Path, err)
				return nil
			}

			mu.Lock()
			report.Courses++
			report.Chunks += result.Chunks
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].Path < report.Skipped[j].Path
	})
	logger.Info("Folder ingestion done: %d courses, %d chunks, %d skipped",
		report.Courses, report.Chunks, len(report.Skipped))
	return report, nil
}

// Watch re-ingests documents as the source reports changes, until ctx is done.
func (s *IngestService) Watch(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("%w: no document source configured", domain.ErrInvalidConfig)
	}

	docs, errs := s.source.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch: %v", err)
		case doc, ok := <-docs:
			if !ok {
				return nil
			}
			if _, err := s.IngestDocument(ctx, doc.Path, doc.Content); err != nil {
				logger.Warn("re-ingest %s: %v", doc.Path, err)
			}
		}
	}
}

// keyedMutex serialises work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
