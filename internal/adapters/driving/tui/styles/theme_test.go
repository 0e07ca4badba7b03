package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	for name, c := range map[string]lipgloss.Color{
		"primary":   theme.Primary,
		"secondary": theme.Secondary,
		"muted":     theme.Muted,
		"error":     theme.Error,
		"student":   theme.Student,
		"assistant": theme.Assistant,
	} {
		assert.NotEmpty(t, string(c), name)
	}
}

func TestDefaultTheme_AccentsAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	accents := []lipgloss.Color{
		theme.Primary,
		theme.Secondary,
		theme.Success,
		theme.Warning,
		theme.Error,
		theme.Student,
	}

	seen := make(map[string]bool)
	for _, c := range accents {
		assert.False(t, seen[string(c)], "duplicate accent: %s", c)
		seen[string(c)] = true
	}
}

func TestNewStyles(t *testing.T) {
	theme := DefaultTheme()
	s := NewStyles(theme)
	require.NotNil(t, s)
	assert.Equal(t, theme, s.Theme())

	s = NewStyles(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.Theme())
}

func TestStyles_AllStylesInitialised(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"title":      s.Title,
		"subtitle":   s.Subtitle,
		"normal":     s.Normal,
		"muted":      s.Muted,
		"selected":   s.Selected,
		"error":      s.Error,
		"success":    s.Success,
		"warning":    s.Warning,
		"inputField": s.InputField,
		"statusBar":  s.StatusBar,
		"help":       s.Help,
		"border":     s.Border,
		"question":   s.Question,
		"answer":     s.Answer,
		"source":     s.Source,
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, lipgloss.Style{}, style)
			assert.Contains(t, style.Render("text"), "text")
		})
	}
}
