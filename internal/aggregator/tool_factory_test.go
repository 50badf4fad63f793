package aggregator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbridge/internal/mcpserver"
)

func TestToolFunc_Success(t *testing.T) {
	var gotArgs map[string]any
	conn := newFakeConnector(map[string]*fakeServer{
		"fs": {call: func(server, name string, args map[string]any) (*mcp.CallToolResult, error) {
			gotArgs = args
			return mcp.NewToolResultText("contents"), nil
		}},
	})
	f := &ToolFactory{Connector: conn}

	fn := f.NewToolFunc("read", mcpserver.ServerParams{Name: "fs", Command: "x"})
	args := map[string]any{"path": "/tmp/a", "nested": map[string]any{"n": 1}}
	v := fn(context.Background(), args)

	assert.Equal(t, []any{map[string]any{"type": "text", "text": "contents"}}, v)
	assert.Equal(t, args, gotArgs)
}

func TestToolFunc_Totality(t *testing.T) {
	tests := []struct {
		name    string
		server  *fakeServer
		wantMsg string
	}{
		{
			name:    "connect fails",
			server:  &fakeServer{connectErr: errors.New("spawn failed")},
			wantMsg: "spawn failed",
		},
		{
			name: "call fails",
			server: &fakeServer{call: func(string, string, map[string]any) (*mcp.CallToolResult, error) {
				return nil, errors.New("transport closed")
			}},
			wantMsg: "transport closed",
		},
		{
			name: "tool reports error",
			server: &fakeServer{call: func(string, string, map[string]any) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultError("permission denied"), nil
			}},
			wantMsg: "permission denied",
		},
		{
			name: "session panics",
			server: &fakeServer{call: func(string, string, map[string]any) (*mcp.CallToolResult, error) {
				panic("boom")
			}},
			wantMsg: "panic: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConnector(map[string]*fakeServer{"srv": tt.server})
			f := &ToolFactory{Connector: conn}
			fn := f.NewToolFunc("tool", mcpserver.ServerParams{Name: "srv", Command: "x"})

			var v any
			require.NotPanics(t, func() { v = fn(context.Background(), nil) })

			s, ok := v.(string)
			require.True(t, ok, "expected string, got %T", v)
			assert.True(t, strings.HasPrefix(s, ErrorPrefix))
			assert.Contains(t, s, tt.wantMsg)

			for _, sess := range conn.allSessions() {
				assert.True(t, sess.closed.Load())
			}
		})
	}
}

func TestToolFunc_TimeoutReturnsErrorString(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{"slow": {callDelay: 5 * time.Second}})
	f := &ToolFactory{Connector: conn, Timeout: 50 * time.Millisecond}
	fn := f.NewToolFunc("tool", mcpserver.ServerParams{Name: "slow", Command: "x"})

	start := time.Now()
	v := fn(context.Background(), nil)
	elapsed := time.Since(start)

	s, ok := v.(string)
	require.True(t, ok, "expected string, got %T", v)
	assert.True(t, strings.HasPrefix(s, ErrorPrefix))
	assert.Contains(t, s, context.DeadlineExceeded.Error())
	assert.Less(t, elapsed, 2*time.Second)

	sessions := conn.allSessions()
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].closed.Load())
}

func TestToolFunc_EachCallGetsItsOwnSession(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{"srv": {}})
	f := &ToolFactory{Connector: conn}
	fn := f.NewToolFunc("tool", mcpserver.ServerParams{Name: "srv", Command: "x"})

	fn(context.Background(), nil)
	fn(context.Background(), nil)

	sessions := conn.allSessions()
	require.Len(t, sessions, 2)
	assert.NotSame(t, sessions[0], sessions[1])
	assert.True(t, sessions[0].closed.Load())
	assert.True(t, sessions[1].closed.Load())
}

func TestToolFunc_CapturesParams(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{"srv": {}})
	f := &ToolFactory{Connector: conn}

	p := mcpserver.ServerParams{Name: "srv", Command: "x", Args: []string{"a"}, Env: map[string]string{"K": "1"}}
	fn := f.NewToolFunc("tool", p)
	p.Args[0] = "changed"
	p.Env["K"] = "changed"

	fn(context.Background(), nil)
	sessions := conn.allSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"a"}, sessions[0].params.Args)
	assert.Equal(t, "1", sessions[0].params.Env["K"])
}

func TestToolFunc_StderrCapture(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{"srv": {}})

	quiet := &ToolFactory{Connector: conn, LogDir: "/logs"}
	quiet.NewToolFunc("ns/tool", mcpserver.ServerParams{Name: "srv", Command: "x"})(context.Background(), nil)

	loud := &ToolFactory{Connector: conn, LogDir: "/logs", LogErrors: true}
	loud.NewToolFunc("ns/tool", mcpserver.ServerParams{Name: "srv", Command: "x"})(context.Background(), nil)

	assert.Equal(t, []string{"", filepath.Join("/logs", "ns_tool.stderr.log")}, conn.stderrPaths)
}

func TestFormatError(t *testing.T) {
	err := &InvocationError{Tool: "t", Server: "s", Err: errors.New("inner")}
	assert.Equal(t, "Error executing tool: inner", FormatError(err))
	assert.Equal(t, "Error executing tool: plain", FormatError(errors.New("plain")))
	assert.ErrorIs(t, err, ErrInvocation)

	derr := &DiscoveryError{Server: "s", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, derr, ErrDiscovery)
	assert.ErrorIs(t, derr, context.DeadlineExceeded)
}
