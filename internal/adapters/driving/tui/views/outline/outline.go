// Package outline provides the course outline view for the TUI.
package outline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

// ErrNoCatalogService indicates that no catalog service was provided.
var ErrNoCatalogService = errors.New("catalog service is required")

// View shows the lessons of one course.
type View struct {
	styles         *styles.Styles
	catalogService driving.CatalogService
	ctx            context.Context

	title    string
	outline  *domain.CourseOutline
	selected int
	width    int
	height   int
	ready    bool
	loading  bool
	err      error
}

// NewView creates a new outline view.
func NewView(s *styles.Styles, catalogService driving.CatalogService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:         s,
		catalogService: catalogService,
		ctx:            context.Background(),
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetCourse sets the course to display.
func (v *View) SetCourse(title string) {
	v.title = title
	v.outline = nil
	v.selected = 0
	v.err = nil
}

// Init loads the outline of the current course.
func (v *View) Init() tea.Cmd {
	if v.title == "" {
		return nil
	}
	v.loading = true
	title := v.title
	return func() tea.Msg {
		if v.catalogService == nil {
			return messages.OutlineLoaded{Err: ErrNoCatalogService}
		}
		outline, err := v.catalogService.Outline(v.ctx, title)
		return messages.OutlineLoaded{Outline: outline, Err: err}
	}
}

// Update handles messages for the outline view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.OutlineLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.outline = msg.Outline
		v.selected = 0
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewCourses}
		}
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < v.lessonCount()-1 {
			v.selected++
		}
	case "enter":
		lesson := v.SelectedLesson()
		if lesson == nil {
			return v, nil
		}
		q := fmt.Sprintf("Summarise lesson %d (%s) of %s", lesson.Number, lesson.Title, v.outline.Title)
		return v, func() tea.Msg {
			return messages.QuestionSubmitted{Question: q}
		}
	}
	return v, nil
}

func (v *View) lessonCount() int {
	if v.outline == nil {
		return 0
	}
	return len(v.outline.Lessons)
}

// SelectedLesson returns the highlighted lesson, or nil.
func (v *View) SelectedLesson() *domain.Lesson {
	if v.selected < 0 || v.selected >= v.lessonCount() {
		return nil
	}
	return &v.outline.Lessons[v.selected]
}

// View renders the outline.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	switch {
	case v.loading:
		b.WriteString(v.styles.Title.Render(v.title))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Muted.Render("Loading outline..."))
	case v.err != nil:
		b.WriteString(v.styles.Title.Render(v.title))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case v.outline != nil:
		v.renderOutline(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Ask about lesson  [Esc] Back"))
	return b.String()
}

func (v *View) renderOutline(b *strings.Builder) {
	o := v.outline
	b.WriteString(v.styles.Title.Render(o.Title))
	b.WriteString("\n")
	if o.Instructor != "" {
		b.WriteString(v.styles.Muted.Render("Instructor: " + o.Instructor))
		b.WriteString("\n")
	}
	if o.Link != "" {
		b.WriteString(v.styles.Muted.Render(o.Link))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(o.Lessons) == 0 {
		b.WriteString(v.styles.Muted.Render("No lessons"))
		return
	}

	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Lessons (%d)", len(o.Lessons))))
	b.WriteString("\n")
	for i, l := range o.Lessons {
		line := fmt.Sprintf("%3d  %s", l.Number, l.Title)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + line))
		}
		if l.Link != "" {
			b.WriteString(v.styles.Muted.Render("  " + l.Link))
		}
		b.WriteString("\n")
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Course returns the course being displayed.
func (v *View) Course() string {
	return v.title
}

// Outline returns the loaded outline, or nil.
func (v *View) Outline() *domain.CourseOutline {
	return v.outline
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
