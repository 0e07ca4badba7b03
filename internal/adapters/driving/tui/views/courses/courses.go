// Package courses provides the course catalog view for the TUI.
package courses

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

// ErrNoCatalogService indicates that no catalog service was provided.
var ErrNoCatalogService = errors.New("catalog service is required")

// View lists the indexed courses.
type View struct {
	styles         *styles.Styles
	catalogService driving.CatalogService
	ctx            context.Context
	list           *list.CourseList

	total   int
	width   int
	height  int
	ready   bool
	loading bool
	err     error
}

// NewView creates a new courses view.
func NewView(s *styles.Styles, catalogService driving.CatalogService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:         s,
		catalogService: catalogService,
		ctx:            context.Background(),
		list:           list.NewCourseList(s),
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view and loads the catalog.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadCourses()
}

func (v *View) loadCourses() tea.Cmd {
	return func() tea.Msg {
		if v.catalogService == nil {
			return messages.CoursesLoaded{Err: ErrNoCatalogService}
		}
		analytics, err := v.catalogService.Analytics(v.ctx)
		return messages.CoursesLoaded{Analytics: analytics, Err: err}
	}
}

// Update handles messages for the courses view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.CoursesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		if msg.Analytics != nil {
			v.total = msg.Analytics.TotalCourses
			v.list.SetTitles(msg.Analytics.CourseTitles)
		}
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "enter":
		title := v.list.SelectedTitle()
		if title == "" {
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.CourseSelected{Title: title}
		}
	case "r":
		return v, v.Init()
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// View renders the courses view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Courses"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading courses..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	default:
		b.WriteString(v.list.View())
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Outline  [r] Reload  [Esc] Back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.list.SetDimensions(width, height-6)
}

// Titles returns the listed course titles.
func (v *View) Titles() []string {
	return v.list.Titles()
}

// Total returns the number of courses reported by the catalog.
func (v *View) Total() int {
	return v.total
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
