// Package tui provides an interactive terminal chat interface for lectern.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Ask answers questions within a conversation session.
	Ask driving.AskService

	// Catalog lists courses and their outlines.
	Catalog driving.CatalogService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(ask driving.AskService, catalog driving.CatalogService) *Ports {
	return &Ports{
		Ask:     ask,
		Catalog: catalog,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
