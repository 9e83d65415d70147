package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the "ask" and "retrieve"
tools over the PDPA index.

By default, the server communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead. In HTTP mode Prometheus metrics
are served at /metrics on the same port.

Examples:
  # Stdio mode (default)
  openpdpa mcp serve

  # HTTP mode, restoring the published snapshot first
  openpdpa mcp serve --port 8080 --restore

Client configuration:
  {
    "mcpServers": {
      "openpdpa": {
        "command": "/path/to/openpdpa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("restore", false, "restore the published snapshot first")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	restore, err := cmd.Flags().GetBool("restore")
	if err != nil {
		return fmt.Errorf("getting restore flag: %w", err)
	}

	app, err := requireApplication()
	if err != nil {
		return err
	}

	index, retriever, err := openIndex(cmd.Context(), app, restore)
	if err != nil {
		return err
	}
	query, err := app.Query(retriever)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Query:     query,
		Retriever: retriever,
		Index:     index,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		server.SetMetricsHandler(app.MetricsHandler())
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
