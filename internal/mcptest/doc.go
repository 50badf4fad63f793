// Package mcptest provides a scriptable mock MCP server speaking JSON-RPC over
// stdio, used by the end-to-end tests and by the hidden `toolbridge
// mock-server` command.
//
// A mock server is described in YAML:
//
//	name: files
//	pageSize: 1
//	stderr: "booting"
//	tools:
//	  - name: read
//	    description: Read a file
//	    inputSchema:
//	      type: object
//	    responses:
//	      - condition: {path: missing}
//	        error: "no such file"
//	      - response: "contents of {{args}}"
//
// Responses are matched in order. The first one whose condition matches the
// call arguments wins, and a response without a condition is the fallback.
// `error` produces a tool result flagged isError, `rpcError` a JSON-RPC error,
// `delay` a pause before answering, and `stderr` a line on the server's stderr.
//
// Tests re-execute their own binary as a server through HelperCommand and a
// TestHelperProcess function that calls RunHelperProcess.
package mcptest
