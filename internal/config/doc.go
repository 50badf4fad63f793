// Package config provides configuration management for toolbridge.
//
// Two kinds of configuration exist: the MCP server document, which describes
// which servers to spawn, and process settings read once from the environment.
//
// # Server Document Lookup
//
// The server document is a JSON file. It is looked up in the following order,
// and the first existing, parseable candidate wins:
//
//  1. User Configuration (~/.config/toolbridge/mcp.json)
//     - Written by the administrative commands (server add/update/delete)
//
//  2. Base Configuration (<base path>/mcp.json)
//     - The default shipped alongside an installation or repository
//
// A malformed candidate is skipped with a warning and the next one is tried.
// When no candidate exists an empty document is returned.
//
// # Document Structure
//
//	{
//	  "mcpServers": {
//	    "filesystem": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-filesystem", "$PWD"],
//	      "env": {"TOKEN": "$GITHUB_TOKEN"}
//	    }
//	  }
//	}
//
// Server order in the document is preserved on read and write. That order is
// the merge order: when two servers expose a tool with the same name, the one
// listed later wins.
//
// Values in args and env that start with "$" are placeholders. They are kept
// verbatim in the document and resolved against the environment when servers
// are loaded.
//
// # Settings
//
// Settings are read from the environment at startup:
//
//	MCP_LOG_ERRORS           capture per-call server stderr into $TOOLBRIDGE_HOME/logs
//	MCP_TIMEOUT              per-session timeout in seconds (float, default 60)
//	TOOLBRIDGE_HOME          home path substituted for $LLMS_HOME placeholders
//	TOOLBRIDGE_MAX_DISCOVERY cap on concurrent discoveries (0 means unlimited)
package config
