package config

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrConfiguration marks malformed documents and invalid administrative requests.
var ErrConfiguration = errors.New("configuration error")

// ServerMap is the ordered mapping of server name to entry.
type ServerMap = orderedmap.OrderedMap[string, ServerEntry]

// EnvMap is the ordered mapping of environment key to value or placeholder.
type EnvMap = orderedmap.OrderedMap[string, string]

// Document is the raw, unresolved MCP server configuration.
type Document struct {
	MCPServers *ServerMap `json:"mcpServers" yaml:"mcpServers"`
}

// ServerEntry defines how to spawn one MCP server. Args and env values may be
// "$NAME" placeholders.
type ServerEntry struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     *EnvMap  `json:"env,omitempty" yaml:"env,omitempty"`
}

// NewDocument returns an empty document.
func NewDocument() Document {
	return Document{MCPServers: orderedmap.New[string, ServerEntry]()}
}

// NewEnv builds an EnvMap from alternating key/value pairs.
func NewEnv(pairs ...string) *EnvMap {
	env := orderedmap.New[string, string]()
	for i := 0; i+1 < len(pairs); i += 2 {
		env.Set(pairs[i], pairs[i+1])
	}
	return env
}

// Servers returns the server map, never nil.
func (d *Document) Servers() *ServerMap {
	if d.MCPServers == nil {
		d.MCPServers = orderedmap.New[string, ServerEntry]()
	}
	return d.MCPServers
}

// Names returns server names in document order.
func (d Document) Names() []string {
	if d.MCPServers == nil {
		return nil
	}
	names := make([]string, 0, d.MCPServers.Len())
	for pair := d.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (d Document) Clone() Document {
	out := NewDocument()
	if d.MCPServers == nil {
		return out
	}
	for pair := d.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		out.MCPServers.Set(pair.Key, pair.Value.Clone())
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e ServerEntry) Clone() ServerEntry {
	out := ServerEntry{Command: e.Command}
	if e.Args != nil {
		out.Args = append([]string(nil), e.Args...)
	}
	if e.Env != nil {
		out.Env = orderedmap.New[string, string]()
		for pair := e.Env.Oldest(); pair != nil; pair = pair.Next() {
			out.Env.Set(pair.Key, pair.Value)
		}
	}
	return out
}

// ParseDocument decodes a JSON document, preserving server order.
func ParseDocument(data []byte) (Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = orderedmap.New[string, ServerEntry]()
	}
	return doc, nil
}

// MarshalIndent encodes the document with two-space indentation.
func (d Document) MarshalIndent() ([]byte, error) {
	if d.MCPServers == nil {
		d = NewDocument()
	}
	return json.MarshalIndent(d, "", "  ")
}
