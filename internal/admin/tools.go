package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"toolbridge/internal/aggregator"
	"toolbridge/internal/config"
	"toolbridge/pkg/logging"
)

// ReloadFunc runs a new load pass and republishes the served tools.
type ReloadFunc func(ctx context.Context) (aggregator.LoadReport, error)

// ManagementTools exposes the service, and reload when non-nil, as MCP tools.
// Successful edits trigger a reload so the served tools follow the document.
func ManagementTools(s *Service, reload ReloadFunc) []server.ServerTool {
	serverArgs := []mcp.ToolOption{
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Server name"),
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Executable to spawn"),
		),
		mcp.WithArray("args",
			mcp.Description("Command arguments; \"$NAME\" reads an environment variable"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithObject("env",
			mcp.Description("Environment variables for the server; values may be \"$NAME\" placeholders"),
		),
	}

	tools := []server.ServerTool{
		{
			Tool: mcp.NewTool("core_server_info",
				mcp.WithDescription("Show the configuration path, loaded servers with their tools, and disabled servers"),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				info, err := s.Info()
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return jsonResult(info)
			},
		},
		{
			Tool: mcp.NewTool("core_server_add",
				append([]mcp.ToolOption{mcp.WithDescription("Add an MCP server to the configuration")}, serverArgs...)...,
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				name, entry, err := entryFromArgs(req.GetArguments())
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return afterEdit(ctx, reload, fmt.Sprintf("Added server %s", name))(s.AddServer(name, entry))
			},
		},
		{
			Tool: mcp.NewTool("core_server_update",
				append([]mcp.ToolOption{mcp.WithDescription("Replace the configuration of an existing MCP server")}, serverArgs...)...,
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				name, entry, err := entryFromArgs(req.GetArguments())
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return afterEdit(ctx, reload, fmt.Sprintf("Updated server %s", name))(s.UpdateServer(name, entry))
			},
		},
		{
			Tool: mcp.NewTool("core_server_delete",
				mcp.WithDescription("Remove an MCP server from the configuration"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("Server name"),
				),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				name := cast.ToString(req.GetArguments()["name"])
				return afterEdit(ctx, reload, fmt.Sprintf("Deleted server %s", name))(s.DeleteServer(name))
			},
		},
	}

	if reload != nil {
		tools = append(tools, server.ServerTool{
			Tool: mcp.NewTool("core_reload",
				mcp.WithDescription("Re-read the configuration and rediscover all tools"),
			),
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				report, err := reload(ctx)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return mcp.NewToolResultText(reportText(report)), nil
			},
		})
	}
	return tools
}

// afterEdit turns the outcome of an edit into a tool result, reloading on success.
func afterEdit(ctx context.Context, reload ReloadFunc, msg string) func(config.Document, error) (*mcp.CallToolResult, error) {
	return func(_ config.Document, err error) (*mcp.CallToolResult, error) {
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if reload == nil {
			return mcp.NewToolResultText(msg), nil
		}
		report, err := reload(ctx)
		if err != nil {
			logging.Warn("Admin", "Reload after edit failed: %v", err)
			return mcp.NewToolResultText(fmt.Sprintf("%s, but reload failed: %v", msg, err)), nil
		}
		return mcp.NewToolResultText(msg + "; " + reportText(report)), nil
	}
}

func entryFromArgs(args map[string]any) (string, config.ServerEntry, error) {
	name := cast.ToString(args["name"])
	entry := config.ServerEntry{Command: cast.ToString(args["command"])}

	if raw, ok := args["args"]; ok && raw != nil {
		list, err := cast.ToStringSliceE(raw)
		if err != nil {
			return "", config.ServerEntry{}, fmt.Errorf("%w: args must be a list of strings", config.ErrConfiguration)
		}
		entry.Args = list
	}

	if raw, ok := args["env"]; ok && raw != nil {
		envMap, err := cast.ToStringMapStringE(raw)
		if err != nil {
			return "", config.ServerEntry{}, fmt.Errorf("%w: env must be an object of strings", config.ErrConfiguration)
		}
		keys := make([]string, 0, len(envMap))
		for k := range envMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entry.Env = config.NewEnv()
		for _, k := range keys {
			entry.Env.Set(k, envMap[k])
		}
	}
	return name, entry, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func reportText(r aggregator.LoadReport) string {
	return fmt.Sprintf("loaded %d tools from %d servers (%d disabled)", r.Tools, r.Valid, len(r.Disabled))
}
