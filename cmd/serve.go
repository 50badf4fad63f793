package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolbridge/internal/app"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

// serveCmd loads every configured server and serves the aggregated tools.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregated tools as an MCP server",
	Long: `Loads the configured MCP servers, discovers their tools and serves all of
them, plus the core_server_* management tools, as one MCP server.

Transports:
  stdio (default)  speak MCP on stdin/stdout; logs go to stderr
  sse              serve MCP over HTTP with server-sent events on --host:--port

Send SIGHUP to reload the configuration without restarting.

Configuration:
  ~/.config/toolbridge/mcp.json is read first, then mcp.json in --base.
  MCP_TIMEOUT, MCP_LOG_ERRORS, TOOLBRIDGE_HOME and TOOLBRIDGE_MAX_DISCOVERY
  tune timeouts, stderr capture and discovery.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	transport := app.Transport(serveTransport)
	if transport != app.TransportStdio && transport != app.TransportSSE {
		return fmt.Errorf("unsupported transport %q, use stdio or sse", serveTransport)
	}

	application, err := newApplication(cmd, func(cfg *app.Config) {
		cfg.Transport = transport
		cfg.Host = serveHost
		cfg.Port = servePort
	})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(commandContext(cmd))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTransport, "transport", string(app.TransportStdio), "Transport to serve on (stdio, sse)")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to bind the SSE endpoint to")
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "Port for the SSE endpoint")
}
