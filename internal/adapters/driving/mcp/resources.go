package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for lectern resources.
	uriScheme = "courses://"

	catalogURI = uriScheme + "catalog"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the course catalog.
	s.server.AddResource(&mcp.Resource{
		URI:         catalogURI,
		Name:        "catalog",
		Description: "Number of indexed courses and their titles",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)

	// Template for course outlines.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "outline/{courseName}",
		Name:        "course-outline",
		Description: "Outline of a course, resolved from a partial name",
		MIMEType:    "application/json",
	}, s.handleOutlineResource)
}

// handleCatalogResource returns the course analytics.
func (s *Server) handleCatalogResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	analytics, err := s.ports.Catalog.Analytics(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}

	return jsonResource(req.Params.URI, analytics)
}

// handleOutlineResource returns the outline of one course.
func (s *Server) handleOutlineResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractCourseName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	outline, err := s.ports.Catalog.Outline(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting outline: %w", err)
	}

	return jsonResource(req.Params.URI, outlineOutput(outline))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCourseName extracts the course name from a URI like courses://outline/{courseName}.
// The name may be percent-encoded.
func extractCourseName(uri string) string {
	const prefix = uriScheme + "outline/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	name, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}
