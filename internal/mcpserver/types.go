package mcpserver

import (
	"sort"
	"strings"
)

// ServerParams are the connection parameters for one MCP server after all
// placeholders have been resolved. Tool wrappers capture a copy of them.
type ServerParams struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// EnvList returns Env as sorted KEY=VALUE pairs.
func (p ServerParams) EnvList() []string {
	if len(p.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+p.Env[k])
	}
	return out
}

// Clone returns a deep copy.
func (p ServerParams) Clone() ServerParams {
	out := ServerParams{Name: p.Name, Command: p.Command}
	if p.Args != nil {
		out.Args = append([]string(nil), p.Args...)
	}
	if p.Env != nil {
		out.Env = make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			out.Env[k] = v
		}
	}
	return out
}

// SafeName returns Name with path separators replaced, usable as a file name.
func SafeName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// DisabledServer is a configured server that could not be resolved.
type DisabledServer struct {
	Name        string
	MissingVars []string
}

// Resolution is the outcome of one resolution pass over a document.
type Resolution struct {
	// Valid servers in document order.
	Valid []ServerParams
	// Disabled servers in document order.
	Disabled []DisabledServer
	// Missing holds the missing-variable scan for every configured server.
	Missing map[string][]string
}

// ValidNames returns the names of the valid servers in order.
func (r Resolution) ValidNames() []string {
	names := make([]string, 0, len(r.Valid))
	for _, p := range r.Valid {
		names = append(names, p.Name)
	}
	return names
}

// IsValid reports whether name resolved.
func (r Resolution) IsValid(name string) bool {
	for _, p := range r.Valid {
		if p.Name == name {
			return true
		}
	}
	return false
}
