package domain

import "strconv"

// ContentFilter restricts a content query.
// Both fields are optional; when both are set they are combined with AND.
type ContentFilter struct {
	// CourseTitle is an exact, already resolved course title.
	CourseTitle string

	// LessonNumber restricts results to a single lesson.
	LessonNumber *int
}

// IsEmpty returns true if the filter does not restrict anything.
func (f ContentFilter) IsEmpty() bool {
	return f.CourseTitle == "" && f.LessonNumber == nil
}

// SearchResult is a single content hit.
type SearchResult struct {
	// Content is the chunk text.
	Content string

	// CourseTitle is the owning course.
	CourseTitle string

	// LessonNumber is the owning lesson, nil for course-level chunks.
	LessonNumber *int

	// ChunkIndex is the chunk sequence number within the course.
	ChunkIndex int

	// Distance is the cosine distance to the query (lower is closer).
	Distance float64
}

// Label returns the human-readable citation label, e.g. "Intro to X - Lesson 2".
func (r SearchResult) Label() string {
	if r.LessonNumber == nil {
		return r.CourseTitle
	}
	return r.CourseTitle + " - Lesson " + strconv.Itoa(*r.LessonNumber)
}

// Source is a citation attached to an answer.
type Source struct {
	// Text is the label shown to the user.
	Text string `json:"text"`

	// URL is the lesson link when known.
	URL string `json:"url,omitempty"`
}

// MergeSources appends sources to dst, skipping labels already present.
func MergeSources(dst []Source, src ...Source) []Source {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s.Text] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s.Text]; ok {
			continue
		}
		seen[s.Text] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}

// Answer is the outcome of a single user query.
type Answer struct {
	// Text is the final answer.
	Text string `json:"answer"`

	// Sources are the citations collected by tools during the query.
	Sources []Source `json:"sources"`

	// SessionID identifies the conversation the answer belongs to.
	SessionID string `json:"session_id"`
}

// CourseAnalytics summarises the catalog.
type CourseAnalytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}
