package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.IsType(t, &Extractor{}, extractor)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".md", ".markdown"}, New().Extensions())
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "headings",
			input:    "# Title\n## Subtitle\nBody",
			expected: "Title\nSubtitle\nBody",
		},
		{
			name:     "bold",
			input:    "This is **important** and so is this",
			expected: "This is important and so is this",
		},
		{
			name:     "dunder names untouched",
			input:    "Define __init__ on the class",
			expected: "Define __init__ on the class",
		},
		{
			name:     "angle autolink",
			input:    "Visit <https://example.com/a_b>",
			expected: "Visit https://example.com/a_b",
		},
		{
			name:     "link keeps url",
			input:    "See [the docs](https://example.com/docs) now",
			expected: "See the docs (https://example.com/docs) now",
		},
		{
			name:     "autolink style",
			input:    "[https://example.com](https://example.com)",
			expected: "https://example.com",
		},
		{
			name:     "image removed",
			input:    "Before ![diagram](img.png) after",
			expected: "Before  after",
		},
		{
			name:     "code fence kept as text",
			input:    "Intro\n```go\nfmt.Println(x)\n```\nOutro",
			expected: "Intro\nfmt.Println(x)\nOutro",
		},
		{
			name:     "inline code",
			input:    "Call `New()` first",
			expected: "Call New() first",
		},
		{
			name:     "blockquote",
			input:    "> quoted\nplain",
			expected: "quoted\nplain",
		},
		{
			name:     "horizontal rule",
			input:    "a\n---\nb",
			expected: "a\n\nb",
		},
		{
			name:     "underscores preserved",
			input:    "Course Link: https://example.com/my_course_v2",
			expected: "Course Link: https://example.com/my_course_v2",
		},
		{
			name:     "crlf normalised",
			input:    "a\r\nb",
			expected: "a\nb",
		},
		{
			name:     "collapse newlines",
			input:    "a\n\n\n\n\nb",
			expected: "a\n\nb",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripMarkdown(tc.input))
		})
	}
}

func TestExtract_CourseDocument(t *testing.T) {
	input := "Course Title: **Building RAG Apps**\n" +
		"Course Link: <https://example.com/rag>\n\n" +
		"## Lesson 1: Retrieval\n" +
		"Lesson Link: https://example.com/rag/1\n" +
		"Embeddings map text to vectors.\n"

	result, err := New().Extract(context.Background(), "rag.md", []byte(input))
	require.NoError(t, err)

	assert.Contains(t, result, "Course Title: Building RAG Apps\n")
	assert.Contains(t, result, "Course Link: https://example.com/rag\n")
	assert.Contains(t, result, "\nLesson 1: Retrieval\n")
	assert.Contains(t, result, "Lesson Link: https://example.com/rag/1")
}
