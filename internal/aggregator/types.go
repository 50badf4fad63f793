package aggregator

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDescriptor is one tool as advertised by a server during discovery.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
	Server      string          `json:"server"`
}

// descriptorFromTool converts the wire form, preferring the raw schema so
// nothing the server sent is lost.
func descriptorFromTool(server string, tool mcp.Tool) ToolDescriptor {
	d := ToolDescriptor{Name: tool.Name, Description: tool.Description, Server: server}
	if len(tool.RawInputSchema) > 0 {
		d.InputSchema = append(json.RawMessage(nil), tool.RawInputSchema...)
	} else if data, err := json.Marshal(tool.InputSchema); err == nil {
		d.InputSchema = data
	}
	return d
}

// ToolFunc invokes one discovered tool. It never panics and never fails:
// errors come back as a string starting with ErrorPrefix.
type ToolFunc func(ctx context.Context, args map[string]any) any

// ToolDefinition is the function-calling shape handed to a Registrar.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes the callable.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// NewToolDefinition builds the definition for a discovered tool.
func NewToolDefinition(d ToolDescriptor) ToolDefinition {
	params := d.InputSchema
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object"}`)
	}
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		},
	}
}

// Registrar receives every discovered tool during the merge.
type Registrar interface {
	RegisterTool(fn ToolFunc, def ToolDefinition, group string)
}
