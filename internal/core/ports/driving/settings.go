package driving

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns validated settings from defaults, the config file and the
	// environment, in that order of precedence.
	Get() (domain.Settings, error)

	// Set parses, validates and persists a single setting.
	Set(key, value string) error

	// Display returns stored settings as strings with secrets masked.
	Display() map[string]string

	// Check validates the settings and pings the configured AI providers.
	Check(ctx context.Context) error

	// Path returns the configuration file path.
	Path() string
}
