package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

var (
	askSession string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed courses",
	Long: `Answer a single question with the configured LLM.

The model may search course content or fetch a course outline before it
answers. Sources for the content it used are listed after the answer.
Pass --session with the ID printed by a previous call to continue a
conversation; sessions live only as long as the process that created them
unless the index is persistent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue an existing session")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askService == nil {
		return notConfigured("ask")
	}

	answer, err := askService.Ask(cmd.Context(), askSession, joinArgs(args))
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return writeJSON(cmd.OutOrStdout(), answer)
	}
	printAnswer(cmd, answer)
	return nil
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, s := range answer.Sources {
			if s.URL != "" {
				fmt.Fprintf(out, "  - %s <%s>\n", s.Text, s.URL)
				continue
			}
			fmt.Fprintf(out, "  - %s\n", s.Text)
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\nsession: %s\n", answer.SessionID)
}
