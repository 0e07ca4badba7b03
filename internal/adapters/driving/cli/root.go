// Package cli provides the lectern command-line interface built on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lectern/internal/core/ports/driving"
	"github.com/custodia-labs/lectern/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services wired by the bootstrap hook.
var (
	ingestService   driving.IngestService
	askService      driving.AskService
	catalogService  driving.CatalogService
	settingsService driving.SettingsService

	closeServices func() error
)

// annotation keys on commands.
const (
	// annotationNoServices marks commands that run without any wiring.
	annotationNoServices = "lectern/no-services"

	// annotationSettingsOnly marks commands that must keep working when the
	// configuration is invalid, so the user can repair it.
	annotationSettingsOnly = "lectern/settings-only"

	// annotationDocsDirArg marks commands whose first argument overrides the
	// documents directory.
	annotationDocsDirArg = "lectern/docs-dir-arg"
)

// Options are the global flags handed to the bootstrap hook.
type Options struct {
	ConfigDir string
	Ephemeral bool
	Verbose   bool

	// DocsDir overrides documents.dir for this invocation.
	DocsDir string
}

// Services is the set of driving ports the commands use.
type Services struct {
	Ingest   driving.IngestService
	Ask      driving.AskService
	Catalog  driving.CatalogService
	Settings driving.SettingsService

	// Close releases storage and other resources. May be nil.
	Close func() error
}

// Bootstrap builds the services for a command invocation. When the
// configuration is invalid it may return Services holding only Settings
// together with the error.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap Bootstrap
	options   Options
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Course assistant over your course documents",
	Long: `lectern ingests a folder of structured course documents into a local
vector index and answers questions about them with an LLM that can search
course content and outlines while it answers.

Get started:
  lectern ingest ./docs
  lectern ask "What does lesson 2 of the ML course cover?"
  lectern chat`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&options.ConfigDir, "config-dir", "", "Configuration directory (default ~/.lectern)")
	rootCmd.PersistentFlags().BoolVar(&options.Ephemeral, "ephemeral", false, "Keep the index in memory for this run only")
}

// SetBootstrap installs the hook that wires services before each command.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by `lectern version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices installs services directly, bypassing the bootstrap hook.
func SetServices(s *Services) {
	if s == nil {
		ingestService, askService, catalogService, settingsService = nil, nil, nil, nil
		closeServices = nil
		return
	}
	ingestService = s.Ingest
	askService = s.Ask
	catalogService = s.Catalog
	settingsService = s.Settings
	closeServices = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	// a missing .env is fine
	_ = godotenv.Load()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// post-run hooks are skipped when RunE fails
		if cerr := teardownServices(rootCmd, nil); cerr != nil {
			logger.Error("closing services: %v", cerr)
		}
	}
	return err
}

func setupServices(cmd *cobra.Command, args []string) error {
	logger.SetVerbose(options.Verbose)

	options.DocsDir = ""
	if _, ok := cmd.Annotations[annotationDocsDirArg]; ok && len(args) > 0 {
		options.DocsDir = args[0]
	}

	if _, ok := cmd.Annotations[annotationNoServices]; ok {
		return nil
	}
	if bootstrap == nil {
		return nil
	}

	svc, err := bootstrap(cmd.Context(), options)
	if err != nil {
		if _, ok := cmd.Annotations[annotationSettingsOnly]; ok && svc != nil && svc.Settings != nil {
			logger.Warn("configuration problem: %v", err)
			SetServices(svc)
			return nil
		}
		if svc != nil && svc.Close != nil {
			_ = svc.Close()
		}
		return fmt.Errorf("starting lectern: %w", err)
	}
	SetServices(svc)
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	closer := closeServices
	closeServices = nil
	return closer()
}

// notConfigured builds the error commands return when a service is missing.
func notConfigured(name string) error {
	return errors.New(name + " service not configured")
}
