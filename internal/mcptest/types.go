package mcptest

// MockServerConfig describes a mock MCP server.
type MockServerConfig struct {
	Name string `yaml:"name"`
	// PageSize splits tools/list into pages of this many tools; 0 disables paging.
	PageSize int `yaml:"pageSize,omitempty"`
	// Stderr is written to stderr once at startup.
	Stderr string           `yaml:"stderr,omitempty"`
	Tools  []MockToolConfig `yaml:"tools"`
	// ListDelay pauses before answering tools/list, e.g. "200ms".
	ListDelay string `yaml:"listDelay,omitempty"`
	// FailList answers tools/list with a JSON-RPC error.
	FailList bool `yaml:"failList,omitempty"`
}

// MockToolConfig describes one tool and its canned responses.
type MockToolConfig struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	InputSchema map[string]any     `yaml:"inputSchema,omitempty"`
	Responses   []MockToolResponse `yaml:"responses"`
}

// MockToolResponse is one canned answer.
type MockToolResponse struct {
	Condition map[string]any `yaml:"condition,omitempty"`
	Response  any            `yaml:"response,omitempty"`
	Error     string         `yaml:"error,omitempty"`
	RPCError  string         `yaml:"rpcError,omitempty"`
	Delay     string         `yaml:"delay,omitempty"`
	Stderr    string         `yaml:"stderr,omitempty"`
}
