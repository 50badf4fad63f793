package config

// DefaultDocument returns the document written when a user adds their first
// server: a filesystem server scoped to the working directory and the agent
// directory under the home path.
func DefaultDocument() Document {
	doc := NewDocument()
	doc.MCPServers.Set("filesystem", ServerEntry{
		Command: "npx",
		Args: []string{
			"-y",
			"@modelcontextprotocol/server-filesystem",
			"$PWD",
			"$LLMS_HOME/.agent",
		},
	})
	return doc
}
