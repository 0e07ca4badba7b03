package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lectern/internal/core/ports/driving"
)

var (
	ingestClear        bool
	ingestSkipExisting bool
	ingestWatch        bool
	ingestFiles        []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course documents",
	Long: `Parse, chunk and index every course document in a folder.

Documents start with a "Course Title:" header followed by optional
"Course Link:" and "Course Instructor:" lines and "Lesson N: Title" markers.
Files that cannot be parsed are skipped and listed at the end.

The folder defaults to documents.dir from the settings.

Examples:
  lectern ingest ./docs
  lectern ingest --clear ./docs
  lectern ingest --file notes/ml.txt
  lectern ingest --watch`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationDocsDirArg: "true"},
	RunE:        runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "remove all indexed courses first")
	ingestCmd.Flags().BoolVar(&ingestSkipExisting, "skip-existing", false, "leave already indexed courses untouched")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and re-ingest changed documents")
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "file", "f", nil, "ingest individual files instead of a folder")
	ingestCmd.MarkFlagsMutuallyExclusive("clear", "skip-existing")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "watch")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}
	ctx := cmd.Context()

	if len(ingestFiles) > 0 {
		if len(args) > 0 {
			return errors.New("cannot combine a folder with --file")
		}
		return ingestSingleFiles(cmd, ingestFiles)
	}

	report, err := ingestService.IngestFolder(ctx, driving.FolderOptions{
		ClearExisting: ingestClear,
		SkipExisting:  ingestSkipExisting,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printFolderReport(cmd, report)

	if !ingestWatch {
		return nil
	}
	cmd.Println("Watching for changes, press Ctrl+C to stop.")
	return ingestService.Watch(ctx)
}

func ingestSingleFiles(cmd *cobra.Command, paths []string) error {
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		report, err := ingestService.IngestDocument(cmd.Context(), filepath.Base(path), string(content))
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		cmd.Printf("%s: %q, %d lessons, %d chunks\n",
			path, report.Course.Title, len(report.Course.Lessons), report.Chunks)
		for _, w := range report.Warnings {
			cmd.Printf("  warning: %s\n", w)
		}
	}
	return nil
}

func printFolderReport(cmd *cobra.Command, report *driving.FolderReport) {
	cmd.Printf("Indexed %d courses (%d chunks)\n", report.Courses, report.Chunks)
	if report.Existing > 0 {
		cmd.Printf("Left %d existing courses unchanged\n", report.Existing)
	}
	if len(report.Skipped) == 0 {
		return
	}
	cmd.Printf("Skipped %d documents:\n", len(report.Skipped))
	for _, s := range report.Skipped {
		cmd.Printf("  %s: %s\n", s.Path, s.Reason)
	}
}
