package mcpserver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"toolbridge/pkg/logging"
)

// ClientName is reported to servers during initialize.
const ClientName = "toolbridge"

// ClientVersion is overridden at startup with the build version.
var ClientVersion = "dev"

// closeGrace bounds how long Close waits for a graceful shutdown before the
// subprocess is killed through its context.
var closeGrace = 2 * time.Second

// Session is one live, initialized connection to an MCP server. It is owned by
// exactly one discovery or invocation and must be closed by that owner.
type Session interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	Close() error
}

// Connector opens sessions. stderrPath, when non-empty, receives the server's
// stderr; the file is only created if the server writes something.
type Connector interface {
	Connect(ctx context.Context, params ServerParams, stderrPath string) (Session, error)
}

// StdioConnector spawns each server as a subprocess speaking MCP over stdio.
type StdioConnector struct{}

// NewStdioConnector returns a connector for stdio servers.
func NewStdioConnector() *StdioConnector {
	return &StdioConnector{}
}

// Connect spawns params.Command and performs the initialize handshake. The
// subprocess lives no longer than ctx.
func (c *StdioConnector) Connect(ctx context.Context, params ServerParams, stderrPath string) (Session, error) {
	if params.Command == "" {
		return nil, fmt.Errorf("no command specified for server %s", params.Name)
	}

	sessCtx, cancel := context.WithCancel(ctx)

	stdio := transport.NewStdio(params.Command, params.EnvList(), params.Args...)
	mcpClient := client.NewClient(stdio)

	if err := mcpClient.Start(sessCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start server %s: %w", params.Name, err)
	}

	s := &stdioSession{
		name:       params.Name,
		client:     mcpClient,
		cancel:     cancel,
		stderr:     newLazyFile(stderrPath),
		stderrDone: make(chan struct{}),
	}
	go s.drainStderr(stdio.Stderr())

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    ClientName,
		Version: ClientVersion,
	}
	initReq.Params.Capabilities = mcp.ClientCapabilities{}

	initResult, err := mcpClient.Initialize(sessCtx, initReq)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize server %s: %w", params.Name, err)
	}

	logging.Debug("MCPSession", "Connected to %s (%s %s)", params.Name,
		initResult.ServerInfo.Name, initResult.ServerInfo.Version)
	return s, nil
}

type stdioSession struct {
	name       string
	client     *client.Client
	cancel     context.CancelFunc
	stderr     *lazyFile
	stderrDone chan struct{}
}

func (s *stdioSession) drainStderr(r io.Reader) {
	defer close(s.stderrDone)
	if r == nil {
		return
	}
	var dst io.Writer = io.Discard
	if s.stderr != nil {
		dst = s.stderr
	}
	_, _ = io.Copy(dst, r)
}

// ListTools returns every tool the server advertises, following pagination.
func (s *stdioSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	req := mcp.ListToolsRequest{}
	for {
		res, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to list tools from %s: %w", s.name, err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" || res.NextCursor == req.Params.Cursor {
			return tools, nil
		}
		req.Params.Cursor = res.NextCursor
	}
}

// CallTool forwards args unchanged.
func (s *stdioSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %s on %s: %w", name, s.name, err)
	}
	return res, nil
}

// Close shuts the client down, killing the subprocess if it does not exit
// within the grace period. It is safe to call once per session.
func (s *stdioSession) Close() error {
	done := make(chan error, 1)
	go func() { done <- s.client.Close() }()

	var err error
	select {
	case err = <-done:
		s.cancel()
	case <-time.After(closeGrace):
		logging.Debug("MCPSession", "Server %s did not exit in %s, killing", s.name, closeGrace)
		s.cancel()
		select {
		case err = <-done:
		case <-time.After(closeGrace):
			err = fmt.Errorf("server %s did not shut down", s.name)
		}
	}

	select {
	case <-s.stderrDone:
	case <-time.After(closeGrace):
	}
	if s.stderr != nil {
		if cerr := s.stderr.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
