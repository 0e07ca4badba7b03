package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lectern/internal/adapters/driving/tui"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Chat with the course assistant. Follow-up questions keep the context
of the conversation.

In a terminal this opens the full-screen interface:
  Enter    - Send question
  Ctrl+N   - New session
  PgUp/Dn  - Scroll
  Esc      - Menu
  Ctrl+C   - Quit

When input is not a terminal, or with --plain, questions are read line by
line. Type /new to start a new session and /quit to exit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line-based interface")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if askService == nil {
		return notConfigured("ask")
	}
	if !chatPlain && isTerminal(cmd.InOrStdin()) {
		return runChatTUI(cmd)
	}
	return runChatREPL(cmd)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runChatTUI(cmd *cobra.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(askService, catalogService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(cmd.Context()).StartInChat().Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runChatREPL(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	session := ""

	fmt.Fprintln(out, "Ask about your courses. /new starts over, /quit exits.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return clearChatSession(cmd, session)
		case "/new":
			if err := clearChatSession(cmd, session); err != nil {
				return err
			}
			session = ""
			fmt.Fprintln(out, "Started a new session.")
			continue
		}

		answer, err := askService.Ask(ctx, session, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		session = answer.SessionID
		printAnswer(cmd, answer)
		fmt.Fprintln(out)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return clearChatSession(cmd, session)
}

func clearChatSession(cmd *cobra.Command, session string) error {
	if session == "" {
		return nil
	}
	if err := askService.ClearSession(cmd.Context(), session); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
