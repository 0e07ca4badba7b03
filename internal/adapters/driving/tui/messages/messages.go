// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/lectern/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation view.
	ViewChat
	// ViewCourses lists the indexed courses.
	ViewCourses
	// ViewOutline shows the lessons of one course.
	ViewOutline
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewCourses:
		return "courses"
	case ViewOutline:
		return "outline"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the answer to a submitted question.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// SessionCleared signals the conversation history was dropped.
type SessionCleared struct {
	Err error
}

// CoursesLoaded carries the course catalog.
type CoursesLoaded struct {
	Analytics *domain.CourseAnalytics
	Err       error
}

// CourseSelected signals a course was chosen from the catalog.
type CourseSelected struct {
	Title string
}

// OutlineLoaded carries the outline of a selected course.
type OutlineLoaded struct {
	Outline *domain.CourseOutline
	Err     error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
