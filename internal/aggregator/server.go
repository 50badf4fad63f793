package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"toolbridge/pkg/logging"
)

// AggregatorConfig holds configuration for the aggregator
type AggregatorConfig struct {
	Name    string
	Version string
	Port    int    // Port to listen on for the SSE endpoint
	Host    string // Host to bind to (default: localhost)
}

// AggregatorServer exposes the tools of a ToolRegistry, plus any management
// tools, as a single MCP server.
type AggregatorServer struct {
	config AggregatorConfig
	server *server.MCPServer

	sseServer *server.SSEServer

	mu sync.Mutex
	// active holds the names of aggregated tools currently served.
	active     map[string]struct{}
	management map[string]struct{}
}

// NewAggregatorServer creates a new aggregator server
func NewAggregatorServer(config AggregatorConfig) *AggregatorServer {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 8090
	}
	if config.Name == "" {
		config.Name = "toolbridge"
	}
	if config.Version == "" {
		config.Version = "dev"
	}

	return &AggregatorServer{
		config: config,
		server: server.NewMCPServer(
			config.Name,
			config.Version,
			server.WithToolCapabilities(true),
		),
		active:     make(map[string]struct{}),
		management: make(map[string]struct{}),
	}
}

// MCPServer returns the underlying server.
func (a *AggregatorServer) MCPServer() *server.MCPServer {
	return a.server
}

// AddManagementTools serves tools that are not part of any registry. Sync
// never removes them.
func (a *AggregatorServer) AddManagementTools(tools ...server.ServerTool) {
	a.mu.Lock()
	for _, t := range tools {
		a.management[t.Tool.Name] = struct{}{}
	}
	a.mu.Unlock()
	a.server.AddTools(tools...)
}

// Sync makes the served aggregated tools match reg: tools no longer present
// are removed and every registry entry is (re)added with its current handler.
func (a *AggregatorServer) Sync(reg *ToolRegistry) (added, removed int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tools := reg.Tools()
	next := make(map[string]struct{}, len(tools))
	toAdd := make([]server.ServerTool, 0, len(tools))
	for _, t := range tools {
		name := t.Name()
		if _, reserved := a.management[name]; reserved {
			logging.Warn("Aggregator", "Tool %s from %s shadows a management tool, skipping", name, t.Group)
			continue
		}
		next[name] = struct{}{}
		toAdd = append(toAdd, server.ServerTool{
			Tool:    mcpTool(t.Definition),
			Handler: toolHandler(t.Func),
		})
	}

	var obsolete []string
	for name := range a.active {
		if _, ok := next[name]; !ok {
			obsolete = append(obsolete, name)
		}
	}

	if len(obsolete) > 0 {
		logging.Debug("Aggregator", "Removing %d obsolete tools", len(obsolete))
		a.server.DeleteTools(obsolete...)
	}
	if len(toAdd) > 0 {
		logging.Debug("Aggregator", "Adding %d tools in batch", len(toAdd))
		a.server.AddTools(toAdd...)
	}

	for name := range next {
		if _, ok := a.active[name]; !ok {
			added++
		}
	}
	a.active = next
	return added, len(obsolete)
}

// ServedTools returns the aggregated tool names currently served.
func (a *AggregatorServer) ServedTools() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.active))
	for name := range a.active {
		names = append(names, name)
	}
	return names
}

// ServeStdio serves on in/out until ctx is cancelled or in closes. Server
// errors are logged through the logging package so out stays clean.
func (a *AggregatorServer) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(a.server)
	stdio.SetErrorLogger(log.New(logWriter{}, "", 0))

	logging.Info("Aggregator", "Serving MCP over stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

// StartSSE starts the SSE endpoint in the background.
func (a *AggregatorServer) StartSSE() error {
	a.mu.Lock()
	if a.sseServer != nil {
		a.mu.Unlock()
		return fmt.Errorf("aggregator server already started")
	}
	baseURL := fmt.Sprintf("http://%s:%d", a.config.Host, a.config.Port)
	a.sseServer = server.NewSSEServer(
		a.server,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)
	sseServer := a.sseServer
	a.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", a.config.Host, a.config.Port)
	logging.Info("Aggregator", "Starting MCP aggregator server on %s", addr)
	go func() {
		if err := sseServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Aggregator", err, "SSE server error")
		}
	}()
	return nil
}

// Stop shuts the SSE endpoint down if it is running.
func (a *AggregatorServer) Stop(ctx context.Context) error {
	a.mu.Lock()
	sseServer := a.sseServer
	a.sseServer = nil
	a.mu.Unlock()

	if sseServer == nil {
		return nil
	}

	logging.Info("Aggregator", "Stopping MCP aggregator server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down SSE server: %w", err)
	}
	return nil
}

// GetEndpoint returns the aggregator's SSE endpoint URL
func (a *AggregatorServer) GetEndpoint() string {
	return fmt.Sprintf("http://%s:%d/sse", a.config.Host, a.config.Port)
}

func mcpTool(def ToolDefinition) mcp.Tool {
	schema := def.Function.Parameters
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	return mcp.NewToolWithRawSchema(def.Function.Name, def.Function.Description, schema)
}

func toolHandler(fn ToolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return EncodeValue(fn(ctx, req.GetArguments())), nil
	}
}

// EncodeValue turns a ToolFunc value back into a tool result. Error strings
// become error results; other non-strings are sent as JSON text.
func EncodeValue(v any) *mcp.CallToolResult {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, ErrorPrefix) {
			return mcp.NewToolResultError(val)
		}
		return mcp.NewToolResultText(val)
	case nil:
		return mcp.NewToolResultText("null")
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return mcp.NewToolResultError(ErrorPrefix + fmt.Sprintf("failed to encode result: %v", err))
		}
		return mcp.NewToolResultText(string(data))
	}
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logging.Warn("Aggregator", "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}
