package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"toolbridge/pkg/logging"
)

// RegisteredTool is one entry of a ToolRegistry.
type RegisteredTool struct {
	Func       ToolFunc
	Definition ToolDefinition
	Group      string
}

// Name is the registered tool name.
func (t RegisteredTool) Name() string {
	return t.Definition.Function.Name
}

// ToolRegistry is an in-memory Registrar. Registering a name again replaces
// the previous entry.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]RegisteredTool)}
}

// RegisterTool implements Registrar.
func (r *ToolRegistry) RegisterTool(fn ToolFunc, def ToolDefinition, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := def.Function.Name
	if prev, ok := r.tools[name]; ok && prev.Group != group {
		logging.Debug("Registry", "Tool %s from %s overrides the one from %s", name, group, prev.Group)
	}
	r.tools[name] = RegisteredTool{Func: fn, Definition: def, Group: group}
}

// Get returns the tool registered under name.
func (r *ToolRegistry) Get(name string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Group returns the server that owns name, or "".
func (r *ToolRegistry) Group(name string) string {
	t, _ := r.Get(name)
	return t.Group
}

// Call invokes the named tool. Only an unknown name is an error; failures of
// the tool itself come back as a value.
func (r *ToolRegistry) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Func(ctx, args), nil
}

// Tools returns all entries sorted by name.
func (r *ToolRegistry) Tools() []RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredTool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Len is the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
