package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"toolbridge/internal/aggregator"
	"toolbridge/internal/cli"
)

var (
	toolsOutputFormat string
	toolsCallArgs     string
)

// toolsCmd groups commands that run a load pass and work with its tools.
var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and call aggregated tools",
	Long: `Runs a load pass over the configured MCP servers and works with the
discovered tools directly, without starting a server.

Available commands:
  list  - List every tool and the server that owns it
  call  - Call one tool and print its result`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every discovered tool",
	Long: `Discovers the tools of every valid server and lists them with their owning
server. When two servers expose the same tool name the later server in the
configuration owns it.`,
	Args: cobra.NoArgs,
	RunE: runToolsList,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool-name>",
	Short: "Call one tool",
	Long: `Discovers the tools of every valid server and calls one of them in a fresh
server session. Arguments are passed as a JSON object with --args.

Example:
  toolbridge tools call read_file --args '{"path": "README.md"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runToolsCall,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)

	toolsCmd.PersistentFlags().StringVarP(&toolsOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	toolsCallCmd.Flags().StringVar(&toolsCallArgs, "args", "", "Tool arguments as a JSON object")
}

func runToolsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(toolsOutputFormat)
	if err != nil {
		return err
	}

	out, release := commandOutput(cmd)
	defer release()

	application, err := newApplication(cmd, nil)
	if err != nil {
		return err
	}
	if _, err := application.Reload(commandContext(cmd)); err != nil {
		return err
	}

	tools := application.Registry().Tools()
	rows := make([]cli.ToolRow, 0, len(tools))
	for _, t := range tools {
		rows = append(rows, cli.ToolRow{
			Name:        t.Name(),
			Server:      t.Group,
			Description: t.Definition.Function.Description,
		})
	}
	return cli.NewPrinter(format, out).PrintTools(rows)
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(toolsOutputFormat)
	if err != nil {
		return err
	}
	toolArgs, err := parseToolArgs(toolsCallArgs)
	if err != nil {
		return err
	}

	out, release := commandOutput(cmd)
	defer release()

	application, err := newApplication(cmd, nil)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	if _, err := application.Reload(ctx); err != nil {
		return err
	}

	value, err := application.CallTool(ctx, args[0], toolArgs)
	if err != nil {
		return err
	}

	if err := cli.NewPrinter(format, out).Print(value); err != nil {
		return err
	}
	if s, ok := value.(string); ok && strings.HasPrefix(s, aggregator.ErrorPrefix) {
		return fmt.Errorf("tool %s failed", args[0])
	}
	return nil
}

// parseToolArgs decodes --args; an empty value means no arguments.
func parseToolArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("--args must be a JSON object: %w", err)
	}
	return out, nil
}
