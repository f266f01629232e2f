// Package cli provides the cobra command tree for ray.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/core/ports/driving"
	"github.com/custodia-labs/ray/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Persistent flags.
var (
	verbose   bool
	dataDir   string
	ephemeral bool
)

// Services used by commands. They are filled by composeApp before a command
// runs, or directly by tests.
var (
	settingsService     driving.SettingsService
	ingestService       driving.IngestService
	retrievalService    driving.RetrievalService
	agentService        driving.AgentService
	conversationService driving.ConversationService
)

// annotationServices marks a command as needing services. Its value is one
// of the service levels below.
const annotationServices = "services"

// Service levels.
const (
	// levelSettings builds only the settings service.
	levelSettings = "settings"

	// levelApp builds the full pipeline.
	levelApp = "app"

	// levelWatch builds the full pipeline and watches the index for
	// changes made by other processes.
	levelWatch = "watch"
)

// composeApp builds the services for level and returns a cleanup func.
// Tests replace it to inject mocks.
var composeApp = compose

// cleanupApp releases what composeApp built.
var cleanupApp func()

var rootCmd = &cobra.Command{
	Use:   "ray",
	Short: "Grounded answers from your documents",
	Long: `Ray answers questions about your documents and the web.

Ingest PDFs, Word documents, spreadsheets, CSV, Markdown, HTML and text files
into a local vector index, then ask questions. Answers cite the file and the
page, row or section they came from. Questions the documents cannot answer are
looked up on the web.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())

		level, ok := cmd.Annotations[annotationServices]
		if !ok {
			return nil
		}
		cleanup, err := composeApp(cmd.Context(), level)
		if err != nil {
			return err
		}
		cleanupApp = cleanup
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanupApp != nil {
			cleanupApp()
			cleanupApp = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.ray)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep settings and conversations in memory only")
}

// needs marks cmd as requiring services at level.
func needs(cmd *cobra.Command, level string) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationServices] = level
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if cleanupApp != nil {
		cleanupApp()
		cleanupApp = nil
	}
	return err
}
