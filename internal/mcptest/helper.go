package mcptest

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// EnvHelper marks a re-executed test binary that should act as a server.
	EnvHelper = "GO_WANT_HELPER_PROCESS"
	// EnvConfig carries the YAML server description to the helper.
	EnvConfig = "MOCK_MCP_CONFIG"
)

// HelperCommand returns the command, args and env that re-execute the running
// test binary as a mock server for cfg. The test package must define
//
//	func TestHelperProcess(t *testing.T) { mcptest.RunHelperProcess() }
func HelperCommand(cfg MockServerConfig) (string, []string, map[string]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to encode mock server config: %w", err)
	}
	args := []string{"-test.run=^TestHelperProcess$", "--"}
	env := map[string]string{
		EnvHelper: "1",
		EnvConfig: string(data),
	}
	return os.Args[0], args, env, nil
}

// RunHelperProcess serves the mock described by EnvConfig and exits. It
// returns immediately when the process is not a helper.
func RunHelperProcess() {
	if os.Getenv(EnvHelper) != "1" {
		return
	}

	cfg, err := ParseConfig([]byte(os.Getenv(EnvConfig)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	srv := NewMockMCPServer(cfg, os.Stderr)
	if err := srv.Start(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
