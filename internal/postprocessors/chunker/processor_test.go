package chunker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	require.NoError(t, err)
	return p
}

// reconstruct joins pieces by dropping the overlap from every piece but the first.
func reconstruct(pieces []Piece, overlap int) string {
	var sb strings.Builder
	for i, piece := range pieces {
		r := []rune(piece.Text)
		if i > 0 {
			r = r[overlap:]
		}
		sb.WriteString(string(r))
	}
	return sb.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		assert.Equal(t, DefaultChunkSize, p.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithChunkSize(500), WithOverlap(50))
		assert.Equal(t, 500, p.ChunkSize())
		assert.Equal(t, 50, p.Overlap())
	})

	invalid := []struct {
		name string
		opts []Option
	}{
		{"zero size", []Option{WithChunkSize(0)}},
		{"negative size", []Option{WithChunkSize(-5)}},
		{"negative overlap", []Option{WithOverlap(-1)}},
		{"overlap equals size", []Option{WithChunkSize(100), WithOverlap(100)}},
		{"overlap exceeds size", []Option{WithChunkSize(100), WithOverlap(150)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", mustNew(t).Name())
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Empty(t, mustNew(t).Split(""))
}

func TestSplit_SmallText(t *testing.T) {
	p := mustNew(t, WithChunkSize(100), WithOverlap(20))
	pieces := p.Split("Short text.")

	require.Len(t, pieces, 1)
	assert.Equal(t, Piece{Start: 0, End: 11, Text: "Short text."}, pieces[0])
}

func TestSplit_ExactBudgetWithoutBoundaries(t *testing.T) {
	p := mustNew(t, WithChunkSize(10), WithOverlap(3))
	text := strings.Repeat("a", 24)

	pieces := p.Split(text)

	// ceil((24-3)/(10-3)) = 3
	require.Len(t, pieces, 3)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, 10, pieces[0].End)
	assert.Equal(t, 7, pieces[1].Start)
	assert.Equal(t, 17, pieces[1].End)
	assert.Equal(t, 14, pieces[2].Start)
	assert.Equal(t, 24, pieces[2].End)
	assert.Equal(t, text, reconstruct(pieces, 3))
}

func TestSplit_CountBound(t *testing.T) {
	for _, tc := range []struct{ n, size, overlap int }{
		{100, 10, 0},
		{101, 10, 2},
		{799, 800, 100},
		{801, 800, 100},
		{5000, 800, 100},
		{37, 7, 6},
	} {
		p := mustNew(t, WithChunkSize(tc.size), WithOverlap(tc.overlap))
		pieces := p.Split(strings.Repeat("x", tc.n))

		step := tc.size - tc.overlap
		bound := (tc.n - tc.overlap + step - 1) / step
		if bound < 1 {
			bound = 1
		}
		assert.LessOrEqual(t, len(pieces), bound, "n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap)
	}
}

func TestSplit_OverlapAndReconstruction(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) + "Done!"
	p := mustNew(t, WithChunkSize(120), WithOverlap(25))

	pieces := p.Split(text)
	require.Greater(t, len(pieces), 1)

	for i, piece := range pieces {
		assert.LessOrEqual(t, piece.End-piece.Start, 120)
		assert.NotEmpty(t, piece.Text)
		if i > 0 {
			prev := []rune(pieces[i-1].Text)
			cur := []rune(piece.Text)
			assert.Equal(t, pieces[i-1].End-25, piece.Start)
			assert.Equal(t, string(prev[len(prev)-25:]), string(cur[:25]))
		}
	}
	assert.Equal(t, text, reconstruct(pieces, 25))
}

func TestSplit_PrefersSentenceEnd(t *testing.T) {
	// Budget 50 ends mid-word; a sentence ends 9 runes earlier.
	text := "Alpha beta gamma delta epsilon zeta eta t. Heta iota kappa lambda mu nu."
	p := mustNew(t, WithChunkSize(50), WithOverlap(5))

	pieces := p.Split(text)
	require.NotEmpty(t, pieces)
	assert.True(t, strings.HasSuffix(pieces[0].Text, "t."), "got %q", pieces[0].Text)
}

func TestSplit_FallsBackToWhitespace(t *testing.T) {
	text := "one two three four five six seven eight nine ten eleven twelve"
	p := mustNew(t, WithChunkSize(20), WithOverlap(0))

	pieces := p.Split(text)
	require.Greater(t, len(pieces), 1)
	assert.Equal(t, "one two three four ", pieces[0].Text)
	assert.Equal(t, text, reconstruct(pieces, 0))
}

func TestSplit_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 30)
	p := mustNew(t, WithChunkSize(10), WithOverlap(0))

	pieces := p.Split(text)
	require.Len(t, pieces, 3)
	for _, piece := range pieces {
		assert.Equal(t, 10, len([]rune(piece.Text)))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Sentence number one. Another one here! Why not? ", 30)
	p := mustNew(t, WithChunkSize(90), WithOverlap(15))

	assert.Equal(t, p.Split(text), p.Split(text))
}

func TestSplit_ForwardProgressWithLargeOverlap(t *testing.T) {
	text := strings.Repeat("ab ", 100)
	p := mustNew(t, WithChunkSize(10), WithOverlap(9))

	pieces := p.Split(text)
	for i := 1; i < len(pieces); i++ {
		assert.Greater(t, pieces[i].Start, pieces[i-1].Start)
		assert.Greater(t, pieces[i].End, pieces[i-1].End)
	}
	assert.Equal(t, text, reconstruct(pieces, 9))
}

func TestChunkCourse(t *testing.T) {
	p := mustNew(t, WithChunkSize(40), WithOverlap(5))
	course := domain.Course{
		Title: "Intro to X",
		Lessons: []domain.Lesson{
			{Number: 1, Title: "One"},
			{Number: 2, Title: "Empty"},
			{Number: 3, Title: "Three"},
		},
	}
	bodies := map[int]string{
		1: "First lesson text is long enough to need two chunks overall.",
		2: "",
		3: "Short.",
	}

	chunks := p.ChunkCourse(course, bodies, "ignored preamble")
	require.GreaterOrEqual(t, len(chunks), 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "Intro to X", c.CourseTitle)
		require.NotNil(t, c.LessonNumber)
		assert.NotEqual(t, 2, *c.LessonNumber)
	}

	assert.True(t, strings.HasPrefix(chunks[0].Content, "Lesson 1 content: First"))
	assert.False(t, strings.HasPrefix(chunks[1].Content, "Lesson 1 content: "))

	last := chunks[len(chunks)-1]
	assert.Equal(t, 3, *last.LessonNumber)
	assert.Equal(t, "Lesson 3 content: Short.", last.Content)
	assert.Equal(t, `"Intro to X"#`+strconv.Itoa(last.Index), last.ID())
}

func TestChunkCourse_KeepsExactOverlap(t *testing.T) {
	p := mustNew(t, WithChunkSize(60), WithOverlap(12))
	body := "\n  " + strings.Repeat("Gradient descent updates weights step by step. ", 8) + "\n\n"
	course := domain.Course{Title: "ML", Lessons: []domain.Lesson{{Number: 1}}}

	chunks := p.ChunkCourse(course, map[int]string{1: body}, "")
	require.Greater(t, len(chunks), 2)

	prefix := "Lesson 1 content: "
	require.True(t, strings.HasPrefix(chunks[0].Content, prefix+"Gradient"))
	texts := []string{strings.TrimPrefix(chunks[0].Content, prefix)}
	for _, c := range chunks[1:] {
		texts = append(texts, c.Content)
	}

	for i := 1; i < len(texts); i++ {
		prev := []rune(texts[i-1])
		cur := []rune(texts[i])
		assert.Equal(t, string(prev[len(prev)-12:]), string(cur[:12]), "chunks %d and %d", i-1, i)
	}
	assert.Equal(t, strings.TrimSpace(body), reconstruct(piecesOf(texts), 12))
	assert.False(t, strings.HasSuffix(texts[len(texts)-1], " "), "text ends are trimmed")
}

// piecesOf wraps chunk texts so reconstruct can join them.
func piecesOf(texts []string) []Piece {
	pieces := make([]Piece, len(texts))
	for i, text := range texts {
		pieces[i] = Piece{Text: text}
	}
	return pieces
}

func TestChunkCourse_PreambleWhenNoLessons(t *testing.T) {
	p := mustNew(t)
	chunks := p.ChunkCourse(domain.Course{Title: "Flat"}, nil, "Just some text.")

	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].LessonNumber)
	assert.Equal(t, "Course Flat content: Just some text.", chunks[0].Content)
}

func TestChunkCourse_NothingToChunk(t *testing.T) {
	p := mustNew(t)
	assert.Empty(t, p.ChunkCourse(domain.Course{Title: "Empty"}, nil, ""))
}
