package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

var (
	searchCourse string
	searchLesson int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search course content",
	Long: `Run a semantic search over indexed course content without the LLM.

--course accepts a partial or approximate course name, resolved the same
way the assistant resolves it. --lesson restricts results to one lesson.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCourse, "course", "c", "", "restrict to a course (fuzzy match)")
	searchCmd.Flags().IntVarP(&searchLesson, "lesson", "l", 0, "restrict to a lesson number")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the JSON shape of a search result.
type searchHit struct {
	Course   string  `json:"course"`
	Lesson   *int    `json:"lesson,omitempty"`
	Label    string  `json:"label"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return notConfigured("catalog")
	}

	var lesson *int
	if cmd.Flags().Changed("lesson") {
		lesson = domain.IntPtr(searchLesson)
	}

	results, err := catalogService.Search(cmd.Context(), joinArgs(args), searchCourse, lesson)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{
			Course:   r.CourseTitle,
			Lesson:   r.LessonNumber,
			Label:    r.Label(),
			Content:  r.Content,
			Distance: r.Distance,
		}
	}
	return writeJSON(cmd.OutOrStdout(), hits)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, results[i].Label(), results[i].Distance)
		cmd.Printf("      %s\n", snippet(results[i].Content, 160))
		cmd.Println()
	}
}

// snippet collapses whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
