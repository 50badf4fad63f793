package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constTool(v any) ToolFunc {
	return func(context.Context, map[string]any) any { return v }
}

func def(name string) ToolDefinition {
	return NewToolDefinition(ToolDescriptor{Name: name})
}

func TestToolRegistry(t *testing.T) {
	reg := NewToolRegistry()
	reg.RegisterTool(constTool("first"), def("x"), "A")
	reg.RegisterTool(constTool("b"), def("b"), "B")
	reg.RegisterTool(constTool("second"), def("x"), "B")

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "B", reg.Group("x"))
	assert.Equal(t, "", reg.Group("missing"))

	v, err := reg.Call(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	_, err = reg.Call(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)

	var names []string
	for _, tool := range reg.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"b", "x"}, names)
}

func TestNewToolDefinitionDefaultsSchema(t *testing.T) {
	d := NewToolDefinition(ToolDescriptor{Name: "t", Description: "d"})
	assert.Equal(t, "function", d.Type)
	assert.JSONEq(t, `{"type":"object"}`, string(d.Function.Parameters))
}

func TestToolIndex(t *testing.T) {
	ix := NewToolIndex()
	ix.AddServer("empty")
	ix.Add("A", "x")
	ix.Add("A", "y")
	ix.Add("B", "x")

	assert.Equal(t, []string{"empty", "A", "B"}, ix.Servers())
	assert.Equal(t, []string{}, ix.Tools("empty"))
	assert.Equal(t, []string{"x", "y"}, ix.Tools("A"))
	assert.Nil(t, ix.Tools("unknown"))
	assert.Equal(t, 2, ix.Len())

	owner, ok := ix.Owner("x")
	require.True(t, ok)
	assert.Equal(t, "B", owner)

	var nilIndex *ToolIndex
	assert.Zero(t, nilIndex.Len())
	assert.Nil(t, nilIndex.Servers())
}
