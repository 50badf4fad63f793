package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"

	"toolbridge/pkg/logging"
)

const (
	EnvLogErrors    = "MCP_LOG_ERRORS"
	EnvTimeout      = "MCP_TIMEOUT"
	EnvHome         = "TOOLBRIDGE_HOME"
	EnvMaxDiscovery = "TOOLBRIDGE_MAX_DISCOVERY"

	DefaultTimeout = 60 * time.Second
)

// Settings are process-wide values read once at startup.
type Settings struct {
	// LogErrors enables per-call stderr capture for tool invocations.
	LogErrors bool
	// Timeout bounds every discovery and invocation session.
	Timeout time.Duration
	// HomePath replaces the reserved $LLMS_HOME placeholder family.
	HomePath string
	// MaxDiscovery caps concurrent discoveries; 0 means no cap.
	MaxDiscovery int
}

// LoadSettings reads Settings through lookup, usually os.LookupEnv.
func LoadSettings(lookup func(string) (string, bool)) Settings {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	s := Settings{
		Timeout:  DefaultTimeout,
		HomePath: defaultHomePath(),
	}

	if v, ok := lookup(EnvLogErrors); ok {
		s.LogErrors = parseBoolish(v)
	}

	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		if d, ok := parseTimeout(v); ok {
			s.Timeout = d
		} else {
			logging.Warn("Config", "Ignoring invalid %s=%q, using %s", EnvTimeout, v, DefaultTimeout)
		}
	}

	if v, ok := lookup(EnvHome); ok && v != "" {
		s.HomePath = v
	}

	if v, ok := lookup(EnvMaxDiscovery); ok && strings.TrimSpace(v) != "" {
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil || n < 0 {
			logging.Warn("Config", "Ignoring invalid %s=%q", EnvMaxDiscovery, v)
		} else {
			s.MaxDiscovery = n
		}
	}

	return s
}

func parseBoolish(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	return err == nil && b
}

func defaultHomePath() string {
	home, err := osUserHomeDir()
	if err != nil {
		return ".toolbridge"
	}
	return filepath.Join(home, ".toolbridge")
}

// parseTimeout reads a positive number of seconds that fits a time.Duration.
func parseTimeout(v string) (time.Duration, bool) {
	secs, err := cast.ToFloat64E(strings.TrimSpace(v))
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return 0, false
	}
	if secs > float64(math.MaxInt64)/float64(time.Second) {
		return 0, false
	}
	d := time.Duration(secs * float64(time.Second))
	if d <= 0 {
		return 0, false
	}
	return d, true
}
