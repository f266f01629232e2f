package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ray/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions and retrieve document chunks.

By default, the server communicates over stdio using JSON-RPC. Use --http to
serve streamable HTTP instead, for example to test with MCP Inspector.

Examples:
  # Stdio mode (default)
  ray mcp

  # HTTP mode
  ray mcp --http :8080

Client configuration:
  {
    "mcpServers": {
      "ray": {
        "command": "/path/to/ray",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	needs(mcpCmd, levelWatch)
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Agent:         agentService,
		Retrieval:     retrievalService,
		Conversations: conversationService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		cmd.PrintErrf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
