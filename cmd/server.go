package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"toolbridge/internal/admin"
	"toolbridge/internal/cli"
	"toolbridge/internal/config"
)

var (
	serverOutputFormat string
	serverCommand      string
	serverArgs         []string
	serverEnv          []string
	serverDiscover     bool
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage MCP server definitions",
	Long: `Manage the MCP server definitions in the user configuration.

Available commands:
  add     - Add a new server
  update  - Replace an existing server
  delete  - Remove a server
  info    - Show valid and disabled servers

Changes are written to ~/.config/toolbridge/mcp.json and picked up by a
running 'toolbridge serve' on its next reload (SIGHUP or core_reload).`,
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new MCP server",
	Long: `Add a new MCP server definition. Arguments and environment values may
reference environment variables as $NAME; they are resolved at load time.

Example:
  toolbridge server add github --command github-mcp --env GITHUB_TOKEN='$GITHUB_TOKEN'`,
	Args: cobra.ExactArgs(1),
	RunE: runServerAdd,
}

var serverUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Replace an existing MCP server",
	Long:  `Replace an existing MCP server definition. The whole entry is replaced.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runServerUpdate,
}

var serverDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove an MCP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runServerDelete,
}

var serverInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configured servers",
	Long: `Show every configured server. Servers with unset $VARIABLES are listed as
disabled together with the variables they need. With --discover a load pass
runs first so the tools of each valid server are listed too.`,
	Args: cobra.NoArgs,
	RunE: runServerInfo,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverUpdateCmd)
	serverCmd.AddCommand(serverDeleteCmd)
	serverCmd.AddCommand(serverInfoCmd)

	serverCmd.PersistentFlags().StringVarP(&serverOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")

	for _, c := range []*cobra.Command{serverAddCmd, serverUpdateCmd} {
		c.Flags().StringVar(&serverCommand, "command", "", "Command that starts the server")
		c.Flags().StringArrayVar(&serverArgs, "arg", nil, "Argument passed to the command (repeatable)")
		c.Flags().StringArrayVar(&serverEnv, "env", nil, "Environment variable as KEY=VALUE (repeatable)")
		_ = c.MarkFlagRequired("command")
	}
	serverInfoCmd.Flags().BoolVar(&serverDiscover, "discover", false, "Run a load pass to list each server's tools")
}

func runServerAdd(cmd *cobra.Command, args []string) error {
	return editServer(cmd, args[0], func(svc *admin.Service, name string, entry config.ServerEntry) (config.Document, error) {
		return svc.AddServer(name, entry)
	}, "added")
}

func runServerUpdate(cmd *cobra.Command, args []string) error {
	return editServer(cmd, args[0], func(svc *admin.Service, name string, entry config.ServerEntry) (config.Document, error) {
		return svc.UpdateServer(name, entry)
	}, "updated")
}

func editServer(cmd *cobra.Command, name string, edit func(*admin.Service, string, config.ServerEntry) (config.Document, error), verb string) error {
	format, err := cli.ParseOutputFormat(serverOutputFormat)
	if err != nil {
		return err
	}
	env, err := parseEnvPairs(serverEnv)
	if err != nil {
		return err
	}
	entry := config.ServerEntry{Command: serverCommand, Args: serverArgs, Env: env}

	application, err := newApplication(cmd, nil)
	if err != nil {
		return err
	}
	svc := application.Services().Admin
	doc, err := edit(svc, name, entry)
	if err != nil {
		return err
	}
	return printDocument(cmd, format, doc, fmt.Sprintf("Server %s %s in %s", name, verb, application.Services().Store.Path()))
}

func runServerDelete(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(serverOutputFormat)
	if err != nil {
		return err
	}
	application, err := newApplication(cmd, nil)
	if err != nil {
		return err
	}
	doc, err := application.Services().Admin.DeleteServer(args[0])
	if err != nil {
		return err
	}
	return printDocument(cmd, format, doc, fmt.Sprintf("Server %s deleted from %s", args[0], application.Services().Store.Path()))
}

func runServerInfo(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(serverOutputFormat)
	if err != nil {
		return err
	}
	out, release := commandOutput(cmd)
	defer release()

	application, err := newApplication(cmd, nil)
	if err != nil {
		return err
	}
	if serverDiscover {
		if _, err := application.Reload(commandContext(cmd)); err != nil {
			return err
		}
	}

	info, err := application.Services().Admin.Info()
	if err != nil {
		return err
	}

	var rows []cli.ServerRow
	for pair := info.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		rows = append(rows, cli.ServerRow{
			Name:    pair.Key,
			Enabled: true,
			Command: pair.Value.Command,
			Tools:   pair.Value.Tools,
		})
	}
	for pair := info.DisabledServers.Oldest(); pair != nil; pair = pair.Next() {
		rows = append(rows, cli.ServerRow{
			Name:           pair.Key,
			MissingEnvVars: pair.Value.MissingEnvVars,
		})
	}

	p := cli.NewPrinter(format, out)
	if format == cli.OutputFormatTable {
		fmt.Fprintf(out, "Configuration: %s\n", info.ConfigPath)
	}
	return p.PrintServers(rows, info)
}

// printDocument prints msg for tables and the whole updated document otherwise.
func printDocument(cmd *cobra.Command, format cli.OutputFormat, doc config.Document, msg string) error {
	if format == cli.OutputFormatTable {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), msg)
		return err
	}
	return cli.NewPrinter(format, cmd.OutOrStdout()).Print(doc)
}

// parseEnvPairs turns KEY=VALUE flags into an ordered env map.
func parseEnvPairs(pairs []string) (*config.EnvMap, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := config.NewEnv()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", pair)
		}
		env.Set(strings.TrimSpace(key), value)
	}
	return env, nil
}
