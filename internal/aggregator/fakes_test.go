package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"toolbridge/internal/config"
	"toolbridge/internal/mcpserver"
)

// fakeServer scripts the behaviour of one server behind fakeConnector.
type fakeServer struct {
	tools      []mcp.Tool
	listDelay  time.Duration
	callDelay  time.Duration
	connectErr error
	listErr    error
	panicList  bool
	call       func(server, name string, args map[string]any) (*mcp.CallToolResult, error)
}

type fakeConnector struct {
	servers map[string]*fakeServer

	mu          sync.Mutex
	sessions    []*fakeSession
	stderrPaths []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeConnector(servers map[string]*fakeServer) *fakeConnector {
	return &fakeConnector{servers: servers}
}

func (c *fakeConnector) Connect(ctx context.Context, params mcpserver.ServerParams, stderrPath string) (mcpserver.Session, error) {
	c.mu.Lock()
	c.stderrPaths = append(c.stderrPaths, stderrPath)
	c.mu.Unlock()

	srv, ok := c.servers[params.Name]
	if !ok {
		return nil, errors.New("unknown server " + params.Name)
	}
	if srv.connectErr != nil {
		return nil, srv.connectErr
	}

	s := &fakeSession{conn: c, srv: srv, params: params.Clone()}
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()
	return s, nil
}

func (c *fakeConnector) allSessions() []*fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeSession(nil), c.sessions...)
}

type fakeSession struct {
	conn   *fakeConnector
	srv    *fakeServer
	params mcpserver.ServerParams
	closed atomic.Bool
}

func (s *fakeSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	n := s.conn.inFlight.Add(1)
	defer s.conn.inFlight.Add(-1)
	for {
		cur := s.conn.maxInFlight.Load()
		if n <= cur || s.conn.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if s.srv.panicList {
		panic("list exploded")
	}
	if s.srv.listDelay > 0 {
		select {
		case <-time.After(s.srv.listDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.srv.listErr != nil {
		return nil, s.srv.listErr
	}
	return s.srv.tools, nil
}

func (s *fakeSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if s.closed.Load() {
		return nil, errors.New("session closed")
	}
	if s.srv.callDelay > 0 {
		select {
		case <-time.After(s.srv.callDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.srv.call == nil {
		return mcp.NewToolResultText(s.params.Name + ":" + name), nil
	}
	return s.srv.call(s.params.Name, name, args)
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func tools(names ...string) []mcp.Tool {
	out := make([]mcp.Tool, 0, len(names))
	for _, n := range names {
		out = append(out, mcp.NewTool(n, mcp.WithDescription("tool "+n)))
	}
	return out
}

func params(names ...string) []mcpserver.ServerParams {
	out := make([]mcpserver.ServerParams, 0, len(names))
	for _, n := range names {
		out = append(out, mcpserver.ServerParams{Name: n, Command: "cmd-" + n})
	}
	return out
}

// staticSource serves a fixed document.
type staticSource struct {
	doc config.Document
	err error
}

func (s *staticSource) Read() (config.Document, error) {
	return s.doc, s.err
}

func docWith(names ...string) config.Document {
	doc := config.NewDocument()
	for _, n := range names {
		doc.Servers().Set(n, config.ServerEntry{Command: "cmd-" + n})
	}
	return doc
}

func newTestLoader(src DocumentSource, conn mcpserver.Connector, env map[string]string) *Loader {
	return &Loader{
		Source: src,
		Resolver: mcpserver.Resolver{
			LookupEnv: func(k string) (string, bool) { v, ok := env[k]; return v, ok },
			HomePath:  "/home/agent",
		},
		Discoverer: &Discoverer{Connector: conn, Timeout: 5 * time.Second},
		Factory:    &ToolFactory{Connector: conn, Timeout: 5 * time.Second},
	}
}

// textOf returns the text of the first normalized content block.
func textOf(v any) string {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	m, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["text"].(string)
	return s
}
