package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// maxChatLine bounds a single line of chat input.
const maxChatLine = 1024 * 1024

var (
	chatSession string
	chatTrace   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Reads questions from stdin, one per line, and answers each in the same
conversation. Type 'exit' or 'quit', or send EOF, to leave.

The index is reloaded automatically when another process re-ingests.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "continue this conversation")
	chatCmd.Flags().BoolVar(&chatTrace, "trace", false, "print the reasoning trace")
	needs(chatCmd, levelWatch)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if agentService == nil {
		return errors.New("agent service not configured")
	}

	ctx := cmd.Context()
	interactive := isTerminal(cmd.InOrStdin())
	session := chatSession

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), maxChatLine)

	if interactive {
		cmd.Println("Ask a question. Type 'exit' to quit.")
	}
	for {
		if interactive {
			cmd.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := agentService.HandleQuery(ctx, line, session)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cmd.PrintErrf("Error: %v\n\n", err)
			continue
		}
		session = resp.SessionID
		printResponse(cmd, resp, chatTrace)
		cmd.Println()
	}

	if session != "" {
		cmd.Printf("Session: %s\n", session)
	}
	return scanner.Err()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
