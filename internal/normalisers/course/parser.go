// Package course parses structured course documents.
package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/logger"
)

var (
	// lessonMarker matches "Lesson <n>: <title>". A bare "Lesson:" or a
	// punctuation-only token such as "Lesson #:" is still a marker so it can be
	// reported; "Lesson recap:" and other word tokens are body text.
	lessonMarker = regexp.MustCompile(`(?i)^lesson(?:\s+(\d+|[^\w\s]+))?\s*:\s*(.*)$`)

	// headerLine matches the recognised course header keys.
	headerLine = regexp.MustCompile(`(?i)^course\s+(title|link|instructor)\s*:\s*(.*)$`)

	lessonLinkLine = regexp.MustCompile(`(?i)^lesson\s+link\s*:\s*(.*)$`)
)

// ParsedCourse is the outcome of parsing one document.
type ParsedCourse struct {
	// Course holds the header fields and the lesson outline.
	Course domain.Course

	// Bodies maps lesson number to the trimmed lesson text.
	Bodies map[int]string

	// Preamble is non-header text before the first lesson marker.
	Preamble string

	// Warnings describe sections that were skipped.
	Warnings []string
}

// HasLessons returns true if at least one lesson was parsed.
func (p *ParsedCourse) HasLessons() bool {
	return len(p.Course.Lessons) > 0
}

// Parser parses course documents.
type Parser struct{}

// New creates a new course parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts a course from document text. The name identifies the
// document in warnings and errors. A missing "Course Title:" header returns
// ErrMissingCourseTitle; malformed or duplicate lessons are skipped with a warning.
func (p *Parser) Parse(name, content string) (*ParsedCourse, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	result := &ParsedCourse{Bodies: make(map[int]string)}

	// Header block: everything before the first lesson marker.
	i := 0
	var preamble []string
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if isMarker(line) {
			break
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "title":
				if result.Course.Title == "" {
					result.Course.Title = value
				}
			case "link":
				result.Course.Link = value
			case "instructor":
				result.Course.Instructor = value
			}
			continue
		}
		preamble = append(preamble, lines[i])
	}

	if result.Course.Title == "" {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrMissingCourseTitle)
	}
	result.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))

	// Lesson sections.
	for i < len(lines) {
		m := lessonMarker.FindStringSubmatch(strings.TrimSpace(lines[i]))
		i++

		end := i
		for end < len(lines) && !isMarker(strings.TrimSpace(lines[end])) {
			end++
		}
		section := lines[i:end]
		i = end

		number, err := strconv.Atoi(m[1])
		if err != nil {
			result.warn("%s: %v %q, section skipped", name, domain.ErrMissingLessonNumber, strings.TrimSpace(m[0]))
			continue
		}
		if _, dup := result.Course.Lesson(number); dup {
			result.warn("%s: duplicate lesson %d, section skipped", name, number)
			continue
		}

		lesson := domain.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		if len(section) > 0 {
			if lm := lessonLinkLine.FindStringSubmatch(strings.TrimSpace(section[0])); lm != nil {
				lesson.Link = strings.TrimSpace(lm[1])
				section = section[1:]
			}
		}

		result.Course.Lessons = append(result.Course.Lessons, lesson)
		result.Bodies[number] = strings.TrimSpace(strings.Join(section, "\n"))
	}

	return result, nil
}

func (p *ParsedCourse) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	p.Warnings = append(p.Warnings, msg)
}

// isMarker reports whether a trimmed line starts a lesson section.
// "Lesson Link:" lines are never markers.
func isMarker(line string) bool {
	if lessonLinkLine.MatchString(line) {
		return false
	}
	return lessonMarker.MatchString(line)
}
