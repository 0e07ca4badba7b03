package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/lectern/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driving"
	"github.com/custodia-labs/lectern/internal/core/services"
)

// MockIngestService records ingestion calls.
type MockIngestService struct {
	mu          sync.Mutex
	FolderCalls []driving.FolderOptions
	Documents   []string
	Watched     bool
	Removed     []string
	Report      *driving.FolderReport
	Err         error
}

func (m *MockIngestService) IngestDocument(_ context.Context, name, content string) (*driving.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Documents = append(m.Documents, name)
	title, _, _ := strings.Cut(strings.TrimPrefix(content, "Course Title: "), "\n")
	return &driving.IngestReport{
		Course:   domain.Course{Title: title, Lessons: []domain.Lesson{{Number: 1, Title: "Intro"}}},
		Chunks:   3,
		Warnings: []string{"lesson X skipped"},
	}, nil
}

func (m *MockIngestService) IngestFolder(_ context.Context, opts driving.FolderOptions) (*driving.FolderReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FolderCalls = append(m.FolderCalls, opts)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Report != nil {
		return m.Report, nil
	}
	return &driving.FolderReport{Courses: 2, Chunks: 7}, nil
}

func (m *MockIngestService) Watch(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Watched = true
	return nil
}

func (m *MockIngestService) RemoveCourse(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Removed = append(m.Removed, name)
	return "Introduction to Machine Learning", nil
}

type askCall struct {
	Session  string
	Question string
}

// MockAskService answers every question with a canned reply.
type MockAskService struct {
	mu      sync.Mutex
	Calls   []askCall
	Cleared []string
	Err     error
}

func (m *MockAskService) Ask(_ context.Context, sessionID, question string) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, askCall{Session: sessionID, Question: question})
	if m.Err != nil {
		return nil, m.Err
	}
	if sessionID == "" {
		sessionID = "session-" + strings.Repeat("a", len(m.Calls))
	}
	return &domain.Answer{
		Text:      "Answer to: " + question,
		Sources:   []domain.Source{{Text: "ML - Lesson 1", URL: "https://example.com/ml/1"}, {Text: "ML"}},
		SessionID: sessionID,
	}, nil
}

func (m *MockAskService) ClearSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, sessionID)
	return nil
}

type searchCall struct {
	Query  string
	Course string
	Lesson *int
}

// MockCatalogService serves a fixed two-course catalog.
type MockCatalogService struct {
	mu       sync.Mutex
	Searches []searchCall
	Results  []domain.SearchResult
	Empty    bool
	Err      error
}

func (m *MockCatalogService) Analytics(_ context.Context) (*domain.CourseAnalytics, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Empty {
		return &domain.CourseAnalytics{CourseTitles: []string{}}, nil
	}
	return &domain.CourseAnalytics{
		TotalCourses: 2,
		CourseTitles: []string{"Cooking with Pasta", "Introduction to Machine Learning"},
	}, nil
}

func (m *MockCatalogService) Outline(_ context.Context, name string) (*domain.CourseOutline, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if !strings.Contains(strings.ToLower("Introduction to Machine Learning"), strings.ToLower(name)) {
		return nil, domain.ErrNotFound
	}
	return &domain.CourseOutline{
		Title:      "Introduction to Machine Learning",
		Instructor: "Andrew Ng",
		Link:       "https://example.com/ml",
		Lessons: []domain.Lesson{
			{Number: 0, Title: "Welcome", Link: "https://example.com/ml/0"},
			{Number: 1, Title: "Linear Regression"},
		},
	}, nil
}

func (m *MockCatalogService) Search(_ context.Context, query, courseName string, lesson *int) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, searchCall{Query: query, Course: courseName, Lesson: lesson})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

type testMocks struct {
	Ingest   *MockIngestService
	Ask      *MockAskService
	Catalog  *MockCatalogService
	Settings *services.SettingsService
	Store    *memory.ConfigStore
}

// setupTestServices installs mocks and returns a cleanup function.
func setupTestServices() (*testMocks, func()) {
	store := memory.NewConfigStore()
	m := &testMocks{
		Ingest:   &MockIngestService{},
		Ask:      &MockAskService{},
		Catalog:  &MockCatalogService{},
		Settings: services.NewSettingsService(store, func(string) string { return "" }),
		Store:    store,
	}
	SetServices(&Services{
		Ingest:   m.Ingest,
		Ask:      m.Ask,
		Catalog:  m.Catalog,
		Settings: m.Settings,
	})
	return m, func() { SetServices(nil) }
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

var errBoom = errors.New("boom")
