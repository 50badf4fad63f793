package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toolbridge/internal/mcptest"
)

// newMockServerCmd runs a scripted MCP server on stdio. It is hidden because
// it only exists to exercise toolbridge against servers with known behavior.
func newMockServerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:    "mock-server",
		Short:  "Run a scripted MCP server on stdio",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mockServer, err := mcptest.NewMockMCPServerFromFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to create mock MCP server: %w", err)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := mockServer.Start(ctx); err != nil {
				return fmt.Errorf("mock MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML mock server configuration")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
