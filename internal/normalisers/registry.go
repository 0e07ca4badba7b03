package normalisers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/lectern/internal/core/ports/driven"
	"github.com/custodia-labs/lectern/internal/normalisers/html"
	"github.com/custodia-labs/lectern/internal/normalisers/markdown"
	"github.com/custodia-labs/lectern/internal/normalisers/pdf"
	"github.com/custodia-labs/lectern/internal/normalisers/plaintext"
)

// Registry maps file extensions to text extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]driven.TextExtractor)}
}

// DefaultRegistry returns a registry with every built-in extractor.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []driven.TextExtractor{plaintext.New(), markdown.New(), html.New(), pdf.New()} {
		// Built-in extensions never overlap.
		_ = r.Register(e)
	}
	return r
}

// Register adds an extractor for each of its extensions. An extension that is
// already taken is an error and nothing is registered.
func (r *Registry) Register(e driven.TextExtractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exts := e.Extensions()
	for _, ext := range exts {
		if _, ok := r.extractors[strings.ToLower(ext)]; ok {
			return fmt.Errorf("extractor for %s already registered", ext)
		}
	}
	for _, ext := range exts {
		r.extractors[strings.ToLower(ext)] = e
	}
	return nil
}

// For returns the extractor for a file path, matched on its extension.
func (r *Registry) For(path string) (driven.TextExtractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
