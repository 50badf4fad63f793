package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"toolbridge/internal/app"
	"toolbridge/internal/telemetry"
	"toolbridge/pkg/logging"
)

var (
	// rootDebug enables verbose logging across the application.
	rootDebug bool
	// rootBase is the project directory holding the fallback mcp.json.
	rootBase string
	// rootConfigDir overrides the user configuration directory.
	rootConfigDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "Expose the tools of many MCP servers as one tool set",
	Long: `toolbridge reads a list of MCP servers from mcp.json, spawns each one to
discover its tools, and exposes every discovered tool through a single MCP
server or from the command line.

Servers whose arguments or environment reference unset $VARIABLES are
disabled until the variables are provided. Every tool call runs in a fresh
server process.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid arguments, failed connections)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolbridge version %s\n" .Version}}`)

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, rootCmd.Version)
	if err != nil {
		logging.Warn("CLI", "Telemetry disabled: %v", err)
	}

	err = rootCmd.ExecuteContext(ctx)

	if shutdown != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = shutdown(flushCtx)
		cancel()
	}
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// newApplication builds the application graph from the global flags. Logs go
// to the command's stderr so stdout only carries results.
func newApplication(cmd *cobra.Command, configure func(*app.Config)) (*app.Application, error) {
	cfg := app.NewConfig(rootDebug, rootBase)
	cfg.UserConfigDir = rootConfigDir
	cfg.LogOutput = cmd.ErrOrStderr()
	if rootCmd.Version != "" {
		cfg.Version = rootCmd.Version
	}
	if configure != nil {
		configure(cfg)
	}
	return app.NewApplication(cfg)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// commandOutput returns the writer results are printed to and, until release
// is called, keeps stray library prints on os.Stdout away from it.
func commandOutput(cmd *cobra.Command) (out io.Writer, release func()) {
	out = cmd.OutOrStdout()
	_, release = app.ProtectStdout()
	return out, release
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newMockServerCmd())

	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootBase, "base", "", "Project directory containing a fallback mcp.json (default: working directory)")
	rootCmd.PersistentFlags().StringVar(&rootConfigDir, "config-dir", "", "User configuration directory (default: ~/.config/toolbridge)")
}
