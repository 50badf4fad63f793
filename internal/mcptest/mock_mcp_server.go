package mcptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const protocolVersion = "2024-11-05"

// MockMCPServer implements a configurable mock MCP server for testing
type MockMCPServer struct {
	config MockServerConfig
	tools  map[string]*MockToolHandler
	stderr io.Writer
}

// NewMockMCPServer creates a mock server writing diagnostics to stderr.
func NewMockMCPServer(config MockServerConfig, stderr io.Writer) *MockMCPServer {
	if stderr == nil {
		stderr = io.Discard
	}
	s := &MockMCPServer{
		config: config,
		tools:  make(map[string]*MockToolHandler, len(config.Tools)),
		stderr: stderr,
	}
	for _, tool := range config.Tools {
		s.tools[tool.Name] = NewMockToolHandler(tool, stderr)
	}
	return s
}

// ParseConfig decodes a YAML server description.
func ParseConfig(data []byte) (MockServerConfig, error) {
	var cfg MockServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MockServerConfig{}, fmt.Errorf("failed to parse mock server config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	return cfg, nil
}

// NewMockMCPServerFromFile loads a YAML server description from path.
func NewMockMCPServerFromFile(path string) (*MockMCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mock server config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return NewMockMCPServer(cfg, os.Stderr), nil
}

// Start serves on the process stdio until stdin closes or ctx is done.
func (s *MockMCPServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve handles newline-delimited JSON-RPC messages from in.
func (s *MockMCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if s.config.Stderr != "" {
		fmt.Fprintln(s.stderr, s.config.Stderr)
	}

	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var message map[string]any
		if err := decoder.Decode(&message); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode message: %w", err)
		}

		response := s.processMessage(message)
		if response == nil {
			continue
		}
		if err := encoder.Encode(response); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}
}

func (s *MockMCPServer) processMessage(message map[string]any) map[string]any {
	method, _ := message["method"].(string)
	id, hasID := message["id"]
	params, _ := message["params"].(map[string]any)

	// Notifications get no reply.
	if !hasID || id == nil {
		return nil
	}

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "ping":
		return result(id, map[string]any{})
	case "tools/list":
		return s.handleToolsList(id, params)
	case "tools/call":
		return s.handleToolCall(id, params)
	default:
		return errorResponse(id, -32601, "Method not found", method)
	}
}

func (s *MockMCPServer) handleInitialize(id any) map[string]any {
	return result(id, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    "mock-" + s.config.Name,
			"version": "1.0.0",
		},
	})
}

func (s *MockMCPServer) handleToolsList(id any, params map[string]any) map[string]any {
	if s.config.ListDelay != "" {
		if d, err := time.ParseDuration(s.config.ListDelay); err == nil {
			time.Sleep(d)
		}
	}
	if s.config.FailList {
		return errorResponse(id, -32603, "tools/list failed", nil)
	}

	tools := make([]map[string]any, 0, len(s.config.Tools))
	for _, t := range s.config.Tools {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": normalizeYAML(schema),
		})
	}

	start := 0
	if cursor, ok := params["cursor"].(string); ok && cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 && n <= len(tools) {
			start = n
		}
	}
	end := len(tools)
	if s.config.PageSize > 0 && start+s.config.PageSize < end {
		end = start + s.config.PageSize
	}

	res := map[string]any{"tools": tools[start:end]}
	if end < len(tools) {
		res["nextCursor"] = strconv.Itoa(end)
	}
	return result(id, res)
}

func (s *MockMCPServer) handleToolCall(id any, params map[string]any) map[string]any {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	handler, ok := s.tools[name]
	if !ok {
		return errorResponse(id, -32602, "Tool not found", name)
	}

	res, err := handler.HandleCall(args)
	if err != nil {
		return errorResponse(id, -32603, err.Error(), nil)
	}
	return result(id, res)
}

func result(id any, res any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  res,
	}
}

func errorResponse(id any, code int, message string, data any) map[string]any {
	errorObj := map[string]any{
		"code":    code,
		"message": message,
	}
	if data != nil {
		errorObj["data"] = data
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   errorObj,
	}
}
