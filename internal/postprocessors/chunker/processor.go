// Package chunker splits course text into overlapping, boundary-aware chunks.
package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// maxLookback caps how far back a chunk end may move to reach a boundary.
const maxLookback = 100

// Piece is a contiguous slice of the input text.
// Start and End are rune offsets; Text is the unmodified slice.
type Piece struct {
	Start int
	End   int
	Text  string
}

// Processor splits text into chunks of at most chunkSize characters,
// each starting exactly overlap characters before the previous chunk's end.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// It returns ErrInvalidConfig unless 0 <= overlap < size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, p.chunkSize)
	}
	if p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			domain.ErrInvalidConfig, p.chunkSize, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split cuts text into pieces. A chunk that would end mid-text prefers to end
// right after a sentence end, then right after whitespace, within the lookback
// window; otherwise it ends at the exact budget. Empty text yields no pieces.
func (p *Processor) Split(text string) []Piece {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	lookback := min(p.chunkSize/5, maxLookback)
	pieces := make([]Piece, 0, n/(p.chunkSize-p.overlap)+1)

	start := 0
	for {
		end := start + p.chunkSize
		if end >= n {
			pieces = append(pieces, Piece{Start: start, End: n, Text: string(runes[start:n])})
			return pieces
		}

		// The cut must stay past start+overlap so the next chunk moves forward.
		lo := max(end-lookback, start+p.overlap+1)
		cut := boundary(runes, lo, end)

		pieces = append(pieces, Piece{Start: start, End: cut, Text: string(runes[start:cut])})
		start = cut - p.overlap
	}
}

// boundary returns the preferred cut in [lo, end]. runes[end] must exist.
func boundary(runes []rune, lo, end int) int {
	for j := end; j >= lo; j-- {
		if isSentenceEnd(runes[j-1]) && unicode.IsSpace(runes[j]) {
			return j
		}
	}
	for j := end; j >= lo; j-- {
		if unicode.IsSpace(runes[j-1]) {
			return j
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// ChunkCourse chunks every lesson body in lesson order and returns chunks with
// a zero-based Index running across the whole course. The first chunk of each
// lesson is prefixed with "Lesson N content: ". When the course has no lessons
// the preamble is chunked as course-level content with a
// "Course <title> content: " prefix instead. IDs are derived from the index,
// so the output is fully deterministic. Only the ends of the whole text are
// trimmed; each piece is stored verbatim so consecutive chunks share exactly
// overlap characters.
func (p *Processor) ChunkCourse(course domain.Course, bodies map[int]string, preamble string) []domain.Chunk {
	var chunks []domain.Chunk

	emit := func(text, prefix string, lesson *int) {
		first := true
		for _, piece := range p.Split(strings.TrimSpace(text)) {
			content := piece.Text
			if strings.TrimSpace(content) == "" {
				continue
			}
			if first {
				content = prefix + content
				first = false
			}
			chunks = append(chunks, domain.Chunk{
				Content:      content,
				CourseTitle:  course.Title,
				LessonNumber: lesson,
				Index:        len(chunks),
			})
		}
	}

	if len(course.Lessons) == 0 {
		emit(preamble, "Course "+course.Title+" content: ", nil)
		return chunks
	}

	for _, lesson := range course.Lessons {
		emit(bodies[lesson.Number], "Lesson "+strconv.Itoa(lesson.Number)+" content: ", domain.IntPtr(lesson.Number))
	}
	return chunks
}
