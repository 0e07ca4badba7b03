package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrMissingAskService,
		ErrMissingCatalogService,
		ErrInvalidPorts,
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		msg := err.Error()
		assert.False(t, seen[msg], "duplicate error message: %s", msg)
		seen[msg] = true
	}
}

func TestErrors_Messages(t *testing.T) {
	assert.Contains(t, ErrMissingAskService.Error(), "ask service")
	assert.Contains(t, ErrMissingCatalogService.Error(), "catalog service")
	assert.Contains(t, ErrInvalidPorts.Error(), "invalid ports")
}
