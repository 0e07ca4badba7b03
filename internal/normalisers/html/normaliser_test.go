package html

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
	assert.Equal(t, []string{".html", ".htm"}, New().Extensions())
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple paragraph",
			input:    "<p>Hello World</p>",
			expected: "Hello World",
		},
		{
			name:     "nested tags",
			input:    "<div><p><strong>Bold</strong> text</p></div>",
			expected: "Bold text",
		},
		{
			name:     "script removed",
			input:    "<p>Before</p><script>alert('evil');</script><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "style removed",
			input:    "<style>.foo { color: red; }</style><p>Content</p>",
			expected: "Content",
		},
		{
			name:     "head removed",
			input:    "<head><meta charset='utf-8'><title>Title</title></head><body>Content</body>",
			expected: "Content",
		},
		{
			name:     "br to newline",
			input:    "Line 1<br>Line 2<br/>Line 3",
			expected: "Line 1\nLine 2\nLine 3",
		},
		{
			name:     "entities decoded",
			input:    "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>",
			expected: "<tag> & \"quotes\"",
		},
		{
			name:     "comments removed",
			input:    "<p>Before</p><!-- comment --><p>After</p>",
			expected: "Before\nAfter",
		},
		{
			name:     "list items",
			input:    "<ul><li>Item 1</li><li>Item 2</li></ul>",
			expected: "Item 1\nItem 2",
		},
		{
			name:     "absolute link keeps url",
			input:    `<a href="https://example.com">Click here</a>`,
			expected: "Click here (https://example.com)",
		},
		{
			name:     "link text equal to url",
			input:    `<a href="https://example.com/x">https://example.com/x</a>`,
			expected: "https://example.com/x",
		},
		{
			name:     "relative link keeps text",
			input:    `<a href="/about">About</a>`,
			expected: "About",
		},
		{
			name:     "images removed",
			input:    `<p>See <img src="image.png" alt="Image"> here</p>`,
			expected: "See here",
		},
		{
			name:     "svg removed",
			input:    `<p>Before</p><svg width="100"><circle cx="50"/></svg><p>After</p>`,
			expected: "Before\nAfter",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripHTML(tc.input))
		})
	}
}

func TestExtract_CourseDocument(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
    <title>Course page</title>
    <style>body { font-family: Arial; }</style>
</head>
<body>
    <p>Course Title: Prompt Compression</p>
    <p>Course Link: <a href="https://example.com/pc">https://example.com/pc</a></p>
    <p>Course Instructor: Ada &amp; Grace</p>
    <h2>Lesson 1: Why compress</h2>
    <p>Long prompts cost <em>tokens</em>.</p>
    <script>console.log('x')</script>
</body>
</html>`

	result, err := New().Extract(context.Background(), "course.html", []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Course Title: Prompt Compression\n"+
		"Course Link: https://example.com/pc\n"+
		"Course Instructor: Ada & Grace\n"+
		"Lesson 1: Why compress\n"+
		"Long prompts cost tokens.", result)
}
