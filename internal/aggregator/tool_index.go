package aggregator

// ToolIndex records which server owns each tool after a merge. It is filled
// during one load pass and then published read-only.
type ToolIndex struct {
	servers  []string
	byServer map[string][]string
	owner    map[string]string
}

// NewToolIndex creates an empty index.
func NewToolIndex() *ToolIndex {
	return &ToolIndex{
		byServer: make(map[string][]string),
		owner:    make(map[string]string),
	}
}

// AddServer records server even if it turns out to have no tools.
func (ix *ToolIndex) AddServer(server string) {
	if _, ok := ix.byServer[server]; ok {
		return
	}
	ix.servers = append(ix.servers, server)
	ix.byServer[server] = []string{}
}

// Add appends tool to server's list. A later server claiming the same name
// becomes its owner.
func (ix *ToolIndex) Add(server, tool string) {
	ix.AddServer(server)
	ix.byServer[server] = append(ix.byServer[server], tool)
	ix.owner[tool] = server
}

// Servers returns servers in merge order.
func (ix *ToolIndex) Servers() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.servers...)
}

// Tools returns the tools server advertised, in advertised order.
func (ix *ToolIndex) Tools(server string) []string {
	if ix == nil {
		return nil
	}
	tools, ok := ix.byServer[server]
	if !ok {
		return nil
	}
	return append([]string{}, tools...)
}

// Owner returns the server whose registration of tool won.
func (ix *ToolIndex) Owner(tool string) (string, bool) {
	if ix == nil {
		return "", false
	}
	server, ok := ix.owner[tool]
	return server, ok
}

// Len is the number of distinct tool names.
func (ix *ToolIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.owner)
}
