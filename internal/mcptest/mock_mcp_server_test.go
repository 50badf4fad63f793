package mcptest

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
name: files
pageSize: 1
tools:
  - name: read
    description: Read a file
    responses:
      - condition: {path: missing}
        error: "no such file"
      - condition: {path: broken}
        rpcError: "exploded"
      - response: "read {{args}}"
  - name: stat
    responses:
      - response: {size: 3}
`

func serveLines(t *testing.T, cfg MockServerConfig, lines ...string) []map[string]any {
	t.Helper()
	var out bytes.Buffer
	srv := NewMockMCPServer(cfg, nil)
	require.NoError(t, srv.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out))

	var responses []map[string]any
	dec := json.NewDecoder(&out)
	for dec.More() {
		var msg map[string]any
		require.NoError(t, dec.Decode(&msg))
		responses = append(responses, msg)
	}
	return responses
}

func mustConfig(t *testing.T) MockServerConfig {
	t.Helper()
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	return cfg
}

func TestMockServer_InitializeAndNotifications(t *testing.T) {
	resp := serveLines(t, mustConfig(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, resp, 2)

	res := resp[0]["result"].(map[string]any)
	assert.Equal(t, protocolVersion, res["protocolVersion"])
	assert.Equal(t, "mock-files", res["serverInfo"].(map[string]any)["name"])
	assert.EqualValues(t, 2, resp[1]["id"])
}

func TestMockServer_ToolsListPaginates(t *testing.T) {
	resp := serveLines(t, mustConfig(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{"cursor":"1"}}`,
	)
	require.Len(t, resp, 2)

	first := resp[0]["result"].(map[string]any)
	assert.Equal(t, "1", first["nextCursor"])
	assert.Equal(t, "read", first["tools"].([]any)[0].(map[string]any)["name"])

	second := resp[1]["result"].(map[string]any)
	assert.NotContains(t, second, "nextCursor")
	assert.Equal(t, "stat", second["tools"].([]any)[0].(map[string]any)["name"])
}

func TestMockServer_ToolCallResponses(t *testing.T) {
	tests := []struct {
		name      string
		request   string
		wantText  string
		wantError bool
		wantRPC   bool
	}{
		{
			name:     "fallback renders args",
			request:  `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"read","arguments":{"path":"a"}}}`,
			wantText: `read {"path":"a"}`,
		},
		{
			name:      "conditional tool error",
			request:   `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"read","arguments":{"path":"missing"}}}`,
			wantText:  "no such file",
			wantError: true,
		},
		{
			name:    "rpc error",
			request: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"read","arguments":{"path":"broken"}}}`,
			wantRPC: true,
		},
		{
			name:     "structured response",
			request:  `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"stat"}}`,
			wantText: `{"size":3}`,
		},
		{
			name:    "unknown tool",
			request: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
			wantRPC: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serveLines(t, mustConfig(t), tt.request)
			require.Len(t, resp, 1)

			if tt.wantRPC {
				assert.Contains(t, resp[0], "error")
				return
			}
			res := resp[0]["result"].(map[string]any)
			content := res["content"].([]any)[0].(map[string]any)
			assert.Equal(t, tt.wantText, content["text"])
			if tt.wantError {
				assert.Equal(t, true, res["isError"])
			} else {
				assert.NotContains(t, res, "isError")
			}
		})
	}
}

func TestHelperCommandCarriesConfig(t *testing.T) {
	cmd, args, env, err := HelperCommand(mustConfig(t))
	require.NoError(t, err)
	assert.NotEmpty(t, cmd)
	assert.Equal(t, []string{"-test.run=^TestHelperProcess$", "--"}, args)
	assert.Equal(t, "1", env[EnvHelper])

	cfg, err := ParseConfig([]byte(env[EnvConfig]))
	require.NoError(t, err)
	assert.Equal(t, "files", cfg.Name)
	assert.Len(t, cfg.Tools, 2)
}
