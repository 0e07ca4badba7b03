// Package mcp provides an MCP (Model Context Protocol) server adapter for lectern.
// It lets AI assistants search course content, read outlines and ask questions.
package mcp

import "errors"

// ErrMissingCatalogService is returned when the catalog service is not provided.
var ErrMissingCatalogService = errors.New("mcp: catalog service is required")
