package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolbridge/internal/config"
	"toolbridge/internal/mcpserver"
)

func TestLoad_MergeFollowsConfigOrderNotCompletionOrder(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{
		"A": {tools: tools("x", "a_only"), listDelay: 150 * time.Millisecond},
		"B": {tools: tools("x", "b_only")},
	})
	l := newTestLoader(&staticSource{doc: docWith("A", "B")}, conn, nil)
	reg := NewToolRegistry()

	report, err := l.Load(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Configured)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 3, report.Tools)
	assert.Equal(t, 4, report.Registrations)

	assert.Equal(t, "B", reg.Group("x"))
	assert.Equal(t, "A", reg.Group("a_only"))

	owner, ok := l.Index().Owner("x")
	require.True(t, ok)
	assert.Equal(t, "B", owner)
	assert.Equal(t, []string{"x", "a_only"}, l.Index().Tools("A"))
	assert.Equal(t, []string{"A", "B"}, l.Index().Servers())

	// The surviving wrapper talks to B.
	v, err := reg.Call(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "B:x", textOf(v))
}

func TestLoad_RegistrationDefinition(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{"fs": {tools: tools("read")}})
	l := newTestLoader(&staticSource{doc: docWith("fs")}, conn, nil)

	var defs []ToolDefinition
	var groups []string
	sink := registrarFunc(func(fn ToolFunc, def ToolDefinition, group string) {
		require.NotNil(t, fn)
		defs = append(defs, def)
		groups = append(groups, group)
	})

	_, err := l.Load(context.Background(), sink)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "read", defs[0].Function.Name)
	assert.Equal(t, "tool read", defs[0].Function.Description)
	assert.NotEmpty(t, defs[0].Function.Parameters)
	assert.Equal(t, []string{"fs"}, groups)
}

func TestLoad_DisabledServerIsExcluded(t *testing.T) {
	doc := config.NewDocument()
	doc.Servers().Set("fs", config.ServerEntry{Command: "cmd-fs", Args: []string{"$HOME_VAR"}})
	doc.Servers().Set("ok", config.ServerEntry{Command: "cmd-ok", Args: []string{"$LLMS_HOME/data"}})

	conn := newFakeConnector(map[string]*fakeServer{
		"fs": {tools: tools("read")},
		"ok": {tools: tools("ping")},
	})
	l := newTestLoader(&staticSource{doc: doc}, conn, nil)
	reg := NewToolRegistry()

	report, err := l.Load(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, []mcpserver.DisabledServer{{Name: "fs", MissingVars: []string{"HOME_VAR"}}}, report.Disabled)
	assert.Empty(t, l.Index().Tools("fs"))
	_, ok := reg.Get("read")
	assert.False(t, ok)

	valid := l.ValidServers()
	require.Len(t, valid, 1)
	assert.Equal(t, "ok", valid[0].Name)
	assert.Equal(t, []string{"/home/agent/data"}, valid[0].Args)
}

func TestLoad_FailedDiscoveryKeepsServerValid(t *testing.T) {
	conn := newFakeConnector(map[string]*fakeServer{
		"down": {connectErr: errors.New("spawn failed")},
		"up":   {tools: tools("t")},
	})
	l := newTestLoader(&staticSource{doc: docWith("down", "up")}, conn, nil)
	reg := NewToolRegistry()

	report, err := l.Load(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 1, report.Tools)
	assert.Equal(t, []string{"down", "up"}, l.Index().Servers())
	assert.Empty(t, l.Index().Tools("down"))
}

func TestLoad_NoServers(t *testing.T) {
	l := newTestLoader(&staticSource{doc: config.NewDocument()}, newFakeConnector(nil), nil)
	reg := NewToolRegistry()

	report, err := l.Load(context.Background(), reg)
	require.NoError(t, err)
	assert.Zero(t, report.Configured)
	assert.Zero(t, reg.Len())
	assert.Zero(t, l.Index().Len())
}

func TestLoad_SourceError(t *testing.T) {
	l := newTestLoader(&staticSource{err: errors.New("disk on fire")}, newFakeConnector(nil), nil)

	_, err := l.Load(context.Background(), NewToolRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLoad_ReplacesStateWholesale(t *testing.T) {
	src := &staticSource{doc: docWith("A", "B")}
	conn := newFakeConnector(map[string]*fakeServer{
		"A": {tools: tools("a")},
		"B": {tools: tools("b")},
	})
	l := newTestLoader(src, conn, nil)

	_, err := l.Load(context.Background(), NewToolRegistry())
	require.NoError(t, err)
	assert.Len(t, l.ValidServers(), 2)

	src.doc = docWith("B")
	reg := NewToolRegistry()
	_, err = l.Load(context.Background(), reg)
	require.NoError(t, err)

	valid := l.ValidServers()
	require.Len(t, valid, 1)
	assert.Equal(t, "B", valid[0].Name)
	assert.Equal(t, []string{"B"}, l.Index().Servers())
	_, ok := l.Index().Owner("a")
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

type registrarFunc func(fn ToolFunc, def ToolDefinition, group string)

func (f registrarFunc) RegisterTool(fn ToolFunc, def ToolDefinition, group string) {
	f(fn, def, group)
}
