package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the vector index",
	Long: `Deletes the persisted vector index. Conversations and settings are kept.
Run 'ray ingest' to build a new index.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	needs(resetCmd, levelApp)
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if err := ingestService.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	cmd.Println("Index deleted.")
	return nil
}
