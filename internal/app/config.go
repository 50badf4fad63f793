package app

import (
	"io"

	"toolbridge/internal/config"
)

// Transport selects how the aggregated tools are served.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Serving
	Transport Transport
	Host      string
	Port      int

	// BasePath is the project directory whose mcp.json is the fallback
	// configuration. Empty means the working directory.
	BasePath string
	// UserConfigDir overrides ~/.config/toolbridge, mostly for tests.
	UserConfigDir string

	// Version is reported to clients and to spawned servers.
	Version string

	// LogOutput receives log records. Defaults to os.Stderr so stdout can carry
	// protocol traffic or command output.
	LogOutput io.Writer

	// Process-wide settings read from the environment
	Settings config.Settings
}

// NewConfig creates a new application configuration with Settings read from
// the process environment.
func NewConfig(debug bool, basePath string) *Config {
	return &Config{
		Debug:     debug,
		Transport: TransportStdio,
		BasePath:  basePath,
		Version:   "dev",
		Settings:  config.LoadSettings(nil),
	}
}
