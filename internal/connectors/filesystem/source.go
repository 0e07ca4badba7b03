// Package filesystem provides a DocumentSource that reads course documents
// from a local folder and watches it for changes with fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultDebounce is how long a path must be quiet before a change is emitted.
const DefaultDebounce = 300 * time.Millisecond

// Extractors looks up the text extractor for a file path.
type Extractors interface {
	For(path string) (driven.TextExtractor, bool)
}

// Source lists, reads and watches course documents under a root folder.
type Source struct {
	rootPath   string
	extractors Extractors
	recursive  bool
	debounce   time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithRecursive makes the source descend into subfolders.
func WithRecursive(recursive bool) Option {
	return func(s *Source) {
		s.recursive = recursive
	}
}

// WithDebounce sets the quiet period before a watched change is emitted.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// New creates a filesystem source rooted at rootPath.
func New(rootPath string, extractors Extractors, opts ...Option) *Source {
	s := &Source{
		rootPath:   rootPath,
		extractors: extractors,
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the folder this source reads from.
func (s *Source) Root() string {
	return s.rootPath
}

// validateRoot checks the root exists and is a directory.
func (s *Source) validateRoot() error {
	info, err := os.Stat(s.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", s.rootPath)
	}
	return nil
}

// List returns every supported, non-hidden document in path order.
// Documents whose text cannot be extracted carry the failure in Err.
func (s *Source) List(ctx context.Context) ([]driven.RawDocument, error) {
	if err := s.validateRoot(); err != nil {
		return nil, err
	}

	var docs []driven.RawDocument
	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path == s.rootPath {
				return nil
			}
			if !s.recursive || isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := s.extractors.For(path); !ok {
			return nil
		}

		doc, err := s.readDocument(ctx, path)
		if err != nil {
			doc = &driven.RawDocument{Path: path, Err: err}
		}
		docs = append(docs, *doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.rootPath, err)
	}
	return docs, nil
}

// Read loads one document. The path may be absolute, a file:// URI or
// relative to the root.
func (s *Source) Read(ctx context.Context, path string) (*driven.RawDocument, error) {
	path = ResolvePath(s.rootPath, path)
	if _, ok := s.extractors.For(path); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}
	return s.readDocument(ctx, path)
}

func (s *Source) readDocument(ctx context.Context, path string) (*driven.RawDocument, error) {
	extractor, ok := s.extractors.For(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := extractor.Extract(ctx, path, data)
	if err != nil {
		return nil, err
	}
	return &driven.RawDocument{
		Path:       path,
		Content:    text,
		ModifiedAt: info.ModTime(),
	}, nil
}

// Watch emits documents as they are created or written. Events on one path
// are debounced so an editor's save burst yields a single document. Both
// channels are closed once ctx is done or the watch cannot start.
func (s *Source) Watch(ctx context.Context) (<-chan driven.RawDocument, <-chan error) {
	docs := make(chan driven.RawDocument)
	errs := make(chan error, 1)

	watcher, err := s.startWatcher()
	if err != nil {
		errs <- err
		close(docs)
		close(errs)
		return docs, errs
	}

	go s.watchLoop(ctx, watcher, docs, errs)
	return docs, errs
}

func (s *Source) startWatcher() (*fsnotify.Watcher, error) {
	if err := s.validateRoot(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dirs := []string{s.rootPath}
	if s.recursive {
		dirs = dirs[:0]
		err = filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != s.rootPath && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			dirs = append(dirs, path)
			return nil
		})
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("walk %s: %w", s.rootPath, err)
		}
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return watcher, nil
}

func (s *Source) watchLoop(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	docs chan<- driven.RawDocument,
	errs chan<- error,
) {
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
		ready  = make(chan string, 16)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
		watcher.Close()
		close(docs)
		close(errs)
	}()

	sendErr := func(err error) {
		select {
		case errs <- err:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if s.recursive && event.Has(fsnotify.Create) {
				s.addDir(watcher, event.Name)
			}
			path, ok := s.handleFsEvent(event)
			if !ok {
				continue
			}
			mu.Lock()
			if t, found := timers[path]; found {
				t.Reset(s.debounce)
			} else {
				timers[path] = time.AfterFunc(s.debounce, func() {
					mu.Lock()
					delete(timers, path)
					mu.Unlock()
					select {
					case ready <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()

		case path := <-ready:
			doc, err := s.readDocument(ctx, path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				sendErr(fmt.Errorf("read %s: %w", path, err))
				continue
			}
			select {
			case docs <- *doc:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			sendErr(err)
		}
	}
}

// addDir starts watching a newly created, non-hidden directory.
func (s *Source) addDir(watcher *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || isHidden(filepath.Base(path)) {
		return
	}
	_ = watcher.Add(path)
}

// handleFsEvent reports the path of a supported document that was created or
// written. Removals, renames, chmods, directories and hidden files are ignored.
func (s *Source) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	rel, err := filepath.Rel(s.rootPath, event.Name)
	if err != nil || isHidden(rel) {
		return "", false
	}
	if _, ok := s.extractors.For(event.Name); !ok {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return event.Name, true
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
