package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

var (
	coursesJSON bool
	outlineJSON bool
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List indexed courses",
	Args:  cobra.NoArgs,
	RunE:  runCourses,
}

var outlineCmd = &cobra.Command{
	Use:   "outline [course]",
	Short: "Show a course outline",
	Long: `Show the title, instructor, link and numbered lessons of a course.

The course name may be partial or approximate; the closest indexed course
is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutline,
}

var coursesRemoveCmd = &cobra.Command{
	Use:   "remove [course]",
	Short: "Remove a course from the index",
	Long: `Delete a course's catalog record and all of its content.

The course name may be partial or approximate, as with outline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCoursesRemove,
}

func init() {
	coursesCmd.Flags().BoolVar(&coursesJSON, "json", false, "output as JSON")
	outlineCmd.Flags().BoolVar(&outlineJSON, "json", false, "output as JSON")
	coursesCmd.AddCommand(coursesRemoveCmd)
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(outlineCmd)
}

func runCourses(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return notConfigured("catalog")
	}

	analytics, err := catalogService.Analytics(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing courses: %w", err)
	}

	if coursesJSON {
		return writeJSON(cmd.OutOrStdout(), analytics)
	}

	if analytics.TotalCourses == 0 {
		cmd.Println("No courses indexed. Run `lectern ingest` first.")
		return nil
	}
	cmd.Printf("%d courses:\n", analytics.TotalCourses)
	for _, title := range analytics.CourseTitles {
		cmd.Printf("  %s\n", title)
	}
	return nil
}

func runCoursesRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	title, err := ingestService.RemoveCourse(cmd.Context(), joinArgs(args))
	if err != nil {
		return fmt.Errorf("removing course: %w", err)
	}
	cmd.Printf("Removed %q\n", title)
	return nil
}

// outlineLesson and outlineView are the JSON shape of an outline.
type outlineLesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

type outlineView struct {
	Title      string          `json:"title"`
	Instructor string          `json:"instructor,omitempty"`
	Link       string          `json:"link,omitempty"`
	Lessons    []outlineLesson `json:"lessons"`
}

func runOutline(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return notConfigured("catalog")
	}

	outline, err := catalogService.Outline(cmd.Context(), joinArgs(args))
	if err != nil {
		return fmt.Errorf("outline: %w", err)
	}

	if outlineJSON {
		return writeJSON(cmd.OutOrStdout(), toOutlineView(outline))
	}
	printOutline(cmd, outline)
	return nil
}

func toOutlineView(o *domain.CourseOutline) outlineView {
	v := outlineView{
		Title:      o.Title,
		Instructor: o.Instructor,
		Link:       o.Link,
		Lessons:    make([]outlineLesson, len(o.Lessons)),
	}
	for i, l := range o.Lessons {
		v.Lessons[i] = outlineLesson{Number: l.Number, Title: l.Title, Link: l.Link}
	}
	return v
}

func printOutline(cmd *cobra.Command, o *domain.CourseOutline) {
	cmd.Println(o.Title)
	if o.Instructor != "" {
		cmd.Printf("Instructor: %s\n", o.Instructor)
	}
	if o.Link != "" {
		cmd.Printf("Link: %s\n", o.Link)
	}
	cmd.Println()
	if len(o.Lessons) == 0 {
		cmd.Println("No lessons.")
		return
	}
	for _, l := range o.Lessons {
		cmd.Printf("  %3d. %s\n", l.Number, l.Title)
	}
}
