// Package memory provides in-memory implementations of the driven ports.
// They back tests and the --ephemeral mode, where nothing is persisted.
package memory

import (
	"github.com/custodia-labs/lectern/internal/adapters/driven/config"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings for the lifetime of the process only.
type ConfigStore struct {
	*config.Table
}

// NewConfigStore creates an empty in-memory config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{Table: config.NewTable()}
}

// Set stores a value. It never fails.
func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

// Load is a no-op; there is nothing to read back.
func (s *ConfigStore) Load() error { return nil }

// Path reports the pseudo-path shown by `lectern settings path`.
func (s *ConfigStore) Path() string { return ":memory:" }
