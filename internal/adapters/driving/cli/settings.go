package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lectern/internal/core/services"
)

var settingsAnnotations = map[string]string{annotationSettingsOnly: "true"}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change lectern settings.

Settings are stored in config.toml in the configuration directory.
Environment variables (and a .env file in the working directory) take
precedence over the file, for example LECTERN_LLM_PROVIDER or
ANTHROPIC_API_KEY.`,
	Annotations: settingsAnnotations,
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotations,
	RunE:        runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Change a setting",
	Long: `Validate and store a single setting.

When the value is omitted it is read from standard input, without echo
on a terminal. Use this for API keys and client secrets.

Examples:
  lectern settings set llm.provider anthropic
  lectern settings set llm.api_key
  lectern settings set chunking.size 600`,
	Args:        cobra.RangeArgs(1, 2),
	Annotations: settingsAnnotations,
	ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return services.SettingKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List the settings that can be changed",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoServices: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		for _, key := range services.SettingKeys() {
			cmd.Println(key)
		}
	},
}

var settingsCheckCmd = &cobra.Command{
	Use:         "check",
	Short:       "Validate settings and test provider connections",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotations,
	RunE:        runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	cmd.Printf("Config file: %s\n\n", settingsService.Path())

	stored := settingsService.Display()
	if len(stored) == 0 {
		cmd.Println("No settings stored, using defaults.")
	} else {
		keys := make([]string, 0, len(stored))
		for k := range stored {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %-32s %s\n", k, stored[k])
		}
	}

	settings, err := settingsService.Get()
	cmd.Println()
	if err != nil {
		cmd.Printf("Status: invalid (%v)\n", err)
		return nil
	}
	llm := "not configured"
	if settings.LLM.Provider != "" {
		llm = fmt.Sprintf("%s/%s", settings.LLM.Provider, settings.LLM.Model)
	}
	cmd.Printf("Status: ok (llm %s, embedding %s/%s)\n",
		llm, settings.Embedding.Provider, settings.Embedding.Model)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		cmd.Printf("%s: ", key)
		value = readSecret(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if services.IsSecretSetting(key) {
		shown = settingsService.Display()[key]
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}
	if err := settingsService.Check(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Settings are valid and providers are reachable.")
	return nil
}

// readSecret reads one line, without echo when in is a terminal.
func readSecret(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}
