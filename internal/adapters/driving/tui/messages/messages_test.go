package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewMenu, "menu"},
		{ViewChat, "chat"},
		{ViewCourses, "courses"},
		{ViewOutline, "outline"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestAnswerReceived(t *testing.T) {
	t.Run("with answer", func(t *testing.T) {
		msg := AnswerReceived{
			Question: "What is ML?",
			Answer: &domain.Answer{
				Text:      "A field of study.",
				Sources:   []domain.Source{{Text: "ML - Lesson 1"}},
				SessionID: "session_1",
			},
		}

		require.NotNil(t, msg.Answer)
		assert.Equal(t, "What is ML?", msg.Question)
		assert.Equal(t, "session_1", msg.Answer.SessionID)
		assert.Len(t, msg.Answer.Sources, 1)
		assert.NoError(t, msg.Err)
	})

	t.Run("with error", func(t *testing.T) {
		msg := AnswerReceived{Question: "q", Err: domain.ErrGeneration}

		assert.Nil(t, msg.Answer)
		assert.ErrorIs(t, msg.Err, domain.ErrGeneration)
	})
}

func TestCatalogMessages(t *testing.T) {
	loaded := CoursesLoaded{Analytics: &domain.CourseAnalytics{
		TotalCourses: 2,
		CourseTitles: []string{"A", "B"},
	}}
	assert.Equal(t, 2, loaded.Analytics.TotalCourses)

	selected := CourseSelected{Title: "A"}
	assert.Equal(t, "A", selected.Title)

	outline := OutlineLoaded{Err: domain.ErrNotFound}
	assert.Nil(t, outline.Outline)
	assert.ErrorIs(t, outline.Err, domain.ErrNotFound)
}

func TestErrorOccurred(t *testing.T) {
	err := errors.New("boom")
	msg := ErrorOccurred{Err: err}
	assert.Equal(t, err, msg.Err)
}
