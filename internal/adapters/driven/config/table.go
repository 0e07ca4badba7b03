// Package config holds the key/value table shared by the config store
// adapters. Keys are dotted paths ("llm.auth.scopes"); values are whatever
// the TOML decoder or a caller put there, coerced on read.
package config

import (
	"sort"
	"strings"
	"sync"
)

// Table is a concurrency-safe flat view of configuration.
// The zero value is not usable; call NewTable.
type Table struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{values: make(map[string]any)}
}

// Get returns the raw value stored under key.
func (t *Table) Get(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (t *Table) GetString(key string) string {
	v, _ := t.Get(key)
	s, _ := v.(string)
	return s
}

// GetInt returns the value under key as an int. TOML decodes integers as
// int64, so every integer width and whole floats are accepted.
func (t *Table) GetInt(key string) int {
	v, _ := t.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// GetFloat returns the value under key as a float64.
func (t *Table) GetFloat(key string) float64 {
	v, _ := t.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// GetStringSlice returns the value under key as a string slice.
// Non-string elements of a decoded array are dropped.
func (t *Table) GetStringSlice(key string) []string {
	v, _ := t.Get(key)
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedKeys()
}

// Put stores a value without persisting anything.
func (t *Table) Put(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.values[key] = value
}

// Reset swaps the table contents for a decoded TOML document.
// Nested tables are flattened into dotted keys.
func (t *Table) Reset(doc map[string]any) {
	flat := make(map[string]any)
	flatten(flat, doc, "")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.values = flat
}

// Nested rebuilds the table as nested maps so it encodes as TOML tables.
// A key whose parent is already a scalar ("a" and "a.b") stays dotted at
// the level where the clash happens.
func (t *Table) Nested() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	root := make(map[string]any)
next:
	for _, key := range t.sortedKeys() {
		parts := strings.Split(key, ".")
		node := root
		for i, part := range parts[:len(parts)-1] {
			child, isTable := node[part].(map[string]any)
			if !isTable {
				if _, taken := node[part]; taken {
					node[strings.Join(parts[i:], ".")] = t.values[key]
					continue next
				}
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = t.values[key]
	}
	return root
}

// sortedKeys requires t.mu to be held.
func (t *Table) sortedKeys() []string {
	keys := make([]string, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flatten(dst, doc map[string]any, prefix string) {
	for key, value := range doc {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(dst, nested, key)
			continue
		}
		dst[key] = value
	}
}
