package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/lectern/internal/adapters/driven/storage"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure VectorCollection implements the interface.
var _ driven.VectorCollection = (*VectorCollection)(nil)

// VectorCollection is an in-memory implementation of driven.VectorCollection.
// Records are copied on the way in and out.
type VectorCollection struct {
	name    string
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
}

// NewVectorCollection creates an empty in-memory collection.
func NewVectorCollection(name string) *VectorCollection {
	return &VectorCollection{
		name:    name,
		records: make(map[string]driven.VectorRecord),
	}
}

// Name returns the collection name.
func (c *VectorCollection) Name() string {
	return c.name
}

// Upsert writes or overwrites records by ID.
func (c *VectorCollection) Upsert(_ context.Context, records []driven.VectorRecord) error {
	if err := validate(records); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.records[r.ID] = cloneRecord(r)
	}
	return nil
}

// Replace deletes every record matching filter and writes records under one lock.
func (c *VectorCollection) Replace(_ context.Context, filter driven.VectorFilter, records []driven.VectorRecord) error {
	if err := validate(records); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(filter)
	for _, r := range records {
		c.records[r.ID] = cloneRecord(r)
	}
	return nil
}

// Query returns at most k records matching filter, closest first.
func (c *VectorCollection) Query(
	_ context.Context, embedding []float32, filter driven.VectorFilter, k int,
) ([]driven.VectorMatch, error) {
	c.mu.RLock()
	candidates := c.matchingLocked(filter)
	c.mu.RUnlock()
	return storage.Rank(candidates, embedding, k)
}

// Get returns a record by ID.
func (c *VectorCollection) Get(_ context.Context, id string) (*driven.VectorRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", c.name, id, domain.ErrNotFound)
	}
	out := cloneRecord(r)
	return &out, nil
}

// List returns all records matching filter ordered by ID.
func (c *VectorCollection) List(_ context.Context, filter driven.VectorFilter) ([]driven.VectorRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matchingLocked(filter), nil
}

// Delete removes every record matching filter.
func (c *VectorCollection) Delete(_ context.Context, filter driven.VectorFilter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(filter)
	return nil
}

// Count returns the number of records.
func (c *VectorCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records), nil
}

func (c *VectorCollection) deleteLocked(filter driven.VectorFilter) {
	for id, r := range c.records {
		if filter.Matches(r.Metadata) {
			delete(c.records, id)
		}
	}
}

func (c *VectorCollection) matchingLocked(filter driven.VectorFilter) []driven.VectorRecord {
	out := make([]driven.VectorRecord, 0, len(c.records))
	for _, r := range c.records {
		if filter.Matches(r.Metadata) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func validate(records []driven.VectorRecord) error {
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %d has no ID", domain.ErrInvalidInput, i)
		}
	}
	return nil
}

func cloneRecord(r driven.VectorRecord) driven.VectorRecord {
	return driven.VectorRecord{
		ID:        r.ID,
		Document:  r.Document,
		Embedding: append([]float32(nil), r.Embedding...),
		Metadata:  maps.Clone(r.Metadata),
	}
}
