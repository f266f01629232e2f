package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Add files or directories to the index",
	Long: `Loads the given files, or every supported file under the given
directories, and adds them to the vector index.

Supported formats: pdf, docx, csv, xlsx, txt, md, html. Other files are
skipped. Files already in the index are not embedded again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	needs(ingestCmd, levelApp)
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	report, err := ingestService.Ingest(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printIngestReport(cmd, report)
	return nil
}

func printIngestReport(cmd *cobra.Command, report *driving.IngestReport) {
	for _, f := range report.Skipped {
		cmd.Printf("Skipped (unsupported): %s\n", f)
	}
	for _, f := range report.Failed {
		cmd.Printf("Failed to parse: %s\n", f)
	}
	cmd.Printf("Loaded %d file(s): %d segment(s), %d chunk(s)\n", report.Files, report.Segments, report.Chunks)
	cmd.Printf("Indexed %d new chunk(s), %d total\n", report.Added, report.Total)
}
