package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/core/domain"
)

var (
	historyDelete bool
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history <session>",
	Short: "Show the turns of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List conversations",
	Long:  `Lists stored conversations, most recently updated first.`,
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	historyCmd.Flags().BoolVar(&historyDelete, "delete", false, "delete the conversation instead of showing it")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output turns as JSON")
	needs(historyCmd, levelApp)
	needs(sessionsCmd, levelApp)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}
	sessionID := args[0]

	if historyDelete {
		if err := conversationService.Delete(cmd.Context(), sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		cmd.Printf("Deleted session %s\n", sessionID)
		return nil
	}

	turns, err := conversationService.History(cmd.Context(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(turns) == 0 {
		cmd.Println("No turns found.")
		return nil
	}
	for i := range turns {
		t := &turns[i]
		cmd.Printf("[%s] %s:\n", t.Timestamp.Local().Format(time.DateTime), t.Role)
		cmd.Println(t.Text)
		for j, c := range t.Citations {
			cmd.Printf("  [%d] %s\n", j+1, formatCitation(c))
		}
		cmd.Println()
	}
	return nil
}

func runSessions(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	sessions, err := conversationService.Sessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		cmd.Println("No conversations yet.")
		return nil
	}
	for _, s := range sessions {
		cmd.Println(formatSession(s))
	}
	return nil
}

func formatSession(s domain.Session) string {
	return fmt.Sprintf("%s  %s  %d turn(s)", s.ID, s.UpdatedAt.Local().Format(time.DateTime), s.Turns)
}
