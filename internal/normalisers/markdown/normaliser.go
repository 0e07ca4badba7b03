// Package markdown extracts text from markdown course documents.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles markdown documents.
type Extractor struct{}

// New creates a new markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract strips markdown formatting and returns the remaining text.
func (e *Extractor) Extract(_ context.Context, _ string, data []byte) (string, error) {
	return stripMarkdown(string(data)), nil
}

// Pre-compiled regular expressions for markdown stripping.
var (
	fenceLine     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$\n?")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	blockquote    = regexp.MustCompile(`(?m)^>[ \t]?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_])([ \t]*([-*_])){2,}[ \t]*$`)
	bold          = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	autolinks     = regexp.MustCompile(`<(https?://[^>\s]+)>`)
	inlineCode    = regexp.MustCompile("`([^`\n]+)`")
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes formatting while keeping the text course headers
// depend on. Underscores and single asterisks are left alone since they
// occur in URLs and identifiers.
func stripMarkdown(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	// Code fences go, code stays
	content = fenceLine.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")

	content = images.ReplaceAllString(content, "")
	content = autolinks.ReplaceAllString(content, "$1")
	content = links.ReplaceAllStringFunc(content, func(m string) string {
		parts := links.FindStringSubmatch(m)
		if parts[1] == parts[2] {
			return parts[2]
		}
		return parts[1] + " (" + parts[2] + ")"
	})

	content = headings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = bold.ReplaceAllString(content, "$1")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
