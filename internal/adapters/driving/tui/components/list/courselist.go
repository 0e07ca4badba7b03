// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/lectern/internal/adapters/driving/tui/styles"
)

// CourseList displays course titles in a navigable list.
type CourseList struct {
	titles   []string
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewCourseList creates a new course list component.
func NewCourseList(s *styles.Styles) *CourseList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &CourseList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the course list.
func (c *CourseList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *CourseList) Update(msg tea.Msg) (*CourseList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		case "home", "g":
			c.selected = 0
		case "end", "G":
			if len(c.titles) > 0 {
				c.selected = len(c.titles) - 1
			}
		}
	}
	return c, nil
}

// View renders the course list.
func (c *CourseList) View() string {
	if len(c.titles) == 0 {
		return c.styles.Muted.Render("No courses indexed. Run `lectern ingest` first.")
	}

	lines := make([]string, 0, len(c.titles)+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Courses (%d)", len(c.titles))), "")

	visible := c.height - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := min(start+visible, len(c.titles))

	maxLen := c.width - 6
	if maxLen < 10 {
		maxLen = 10
	}
	for i := start; i < end; i++ {
		title := truncate(c.titles[i], maxLen)
		if i == c.selected {
			lines = append(lines, c.styles.Selected.Render("> "+title))
		} else {
			lines = append(lines, c.styles.Normal.Render("  "+title))
		}
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}

// SetTitles replaces the listed courses and resets the selection.
func (c *CourseList) SetTitles(titles []string) {
	c.titles = titles
	c.selected = 0
}

// Titles returns the listed course titles.
func (c *CourseList) Titles() []string {
	return c.titles
}

// Selected returns the index of the selected course.
func (c *CourseList) Selected() int {
	return c.selected
}

// SetSelected sets the selected index.
func (c *CourseList) SetSelected(index int) {
	if index >= 0 && index < len(c.titles) {
		c.selected = index
	}
}

// SelectedTitle returns the selected course title, or "" if none.
func (c *CourseList) SelectedTitle() string {
	if c.selected < 0 || c.selected >= len(c.titles) {
		return ""
	}
	return c.titles[c.selected]
}

// MoveUp moves selection up.
func (c *CourseList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *CourseList) MoveDown() {
	if c.selected < len(c.titles)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *CourseList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of courses.
func (c *CourseList) Count() int {
	return len(c.titles)
}

// IsEmpty returns whether the list is empty.
func (c *CourseList) IsEmpty() bool {
	return len(c.titles) == 0
}
