package domain

import "strconv"

// Course is a top-level ingested document.
// The title is the identity: re-ingesting a document with the same title
// replaces the previous course.
type Course struct {
	// Title is the course title and primary key.
	Title string

	// Link is the optional course URL.
	Link string

	// Instructor is the optional instructor name.
	Instructor string

	// Lessons are ordered as they appear in the document.
	Lessons []Lesson
}

// Lesson is a numbered section of a Course.
type Lesson struct {
	// Number is unique within the owning course.
	Number int

	// Title is the lesson title.
	Title string

	// Link is the optional lesson URL.
	Link string
}

// Lesson returns the lesson with the given number.
func (c Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// Chunk is a unit of retrievable text derived from a course.
// Chunks are never mutated; they are regenerated wholesale when the course is replaced.
type Chunk struct {
	// Content is the chunk text that gets embedded.
	Content string

	// CourseTitle links back to the owning course.
	CourseTitle string

	// LessonNumber links back to the owning lesson. Nil for course-level text.
	LessonNumber *int

	// Index is the zero-based sequence number within the course.
	Index int
}

// ID returns the stable record identifier for the chunk.
// The title is quoted so distinct titles never share an identifier.
func (c Chunk) ID() string {
	return strconv.Quote(c.CourseTitle) + "#" + strconv.Itoa(c.Index)
}

// CourseOutline is the catalog record kept for each course.
// It carries enough to answer outline questions without touching content.
type CourseOutline struct {
	Title      string
	Instructor string
	Link       string
	Lessons    []Lesson
}

// OutlineOf builds the catalog record for a course.
func OutlineOf(c Course) CourseOutline {
	lessons := make([]Lesson, len(c.Lessons))
	copy(lessons, c.Lessons)
	return CourseOutline{
		Title:      c.Title,
		Instructor: c.Instructor,
		Link:       c.Link,
		Lessons:    lessons,
	}
}

// IntPtr returns a pointer to n. Used for optional lesson numbers.
func IntPtr(n int) *int {
	return &n
}
