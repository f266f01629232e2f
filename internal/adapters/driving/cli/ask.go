package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/core/domain"
)

var (
	askSession string
	askJSON    bool
	askTrace   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question",
	Long: `Answers a single question from the indexed documents or the web.

Pass --session to continue an earlier conversation. The session ID is printed
after every answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue this conversation")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().BoolVar(&askTrace, "trace", false, "print the reasoning trace")
	needs(askCmd, levelApp)
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if agentService == nil {
		return errors.New("agent service not configured")
	}

	resp, err := agentService.HandleQuery(cmd.Context(), args[0], askSession)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printResponse(cmd, resp, askTrace)
	cmd.Printf("\nSession: %s\n", resp.SessionID)
	return nil
}

// printResponse writes an answer, its sources and optionally its trace.
func printResponse(cmd *cobra.Command, resp *domain.AgentResponse, trace bool) {
	if trace {
		printTrace(cmd, resp.Trace)
	}

	cmd.Println(resp.Answer)
	if len(resp.Citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, c := range resp.Citations {
		cmd.Printf("  [%d] %s\n", i+1, formatCitation(c))
	}
}

func formatCitation(c domain.Citation) string {
	if c.Kind == domain.CitationWeb {
		if c.Title == "" {
			return c.URL
		}
		return fmt.Sprintf("%s <%s>", c.Title, c.URL)
	}
	return fmt.Sprintf("%s, %s", c.File, c.Location)
}

func printTrace(cmd *cobra.Command, events []domain.TraceEvent) {
	for _, e := range events {
		switch e.Type {
		case domain.TraceThought:
			cmd.Printf("  thought: %s\n", e.Thought)
		case domain.TraceToolStart:
			cmd.Printf("  -> %s(%q)\n", e.Tool, e.Input)
		case domain.TraceToolEnd:
			cmd.Printf("  <- %s: %s\n", e.Tool, e.Output)
		case domain.TraceToolError:
			cmd.Printf("  !! %s: %s\n", e.Tool, e.Error)
		case domain.TraceFinish:
			cmd.Println("  finish")
		}
	}
	if len(events) > 0 {
		cmd.Println()
	}
}
