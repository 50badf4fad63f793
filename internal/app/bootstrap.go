package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	"toolbridge/internal/admin"
	"toolbridge/internal/aggregator"
	"toolbridge/internal/mcpserver"
	"toolbridge/pkg/logging"
)

// Application is the main application structure that bootstraps and runs toolbridge
type Application struct {
	config   *Config
	services *Services

	// reloadMu makes load, swap and sync one step so concurrent reloads
	// cannot publish an older registry over a newer one.
	reloadMu sync.Mutex

	mu       sync.RWMutex
	registry *aggregator.ToolRegistry
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logging.InitForCLI(appLogLevel, out)

	if cfg.Version != "" {
		mcpserver.ClientVersion = cfg.Version
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a := &Application{
		config:   cfg,
		services: services,
		registry: aggregator.NewToolRegistry(),
	}
	services.Aggregator.AddManagementTools(admin.ManagementTools(services.Admin, a.Reload)...)
	return a, nil
}

// Services returns the wired application graph.
func (a *Application) Services() *Services {
	return a.services
}

// Registry returns the registry built by the last successful load.
func (a *Application) Registry() *aggregator.ToolRegistry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}

// Reload runs a load pass into a fresh registry and, on success, makes it the
// served set. A failed pass leaves the previous registry in place.
func (a *Application) Reload(ctx context.Context) (aggregator.LoadReport, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	reg := aggregator.NewToolRegistry()
	report, err := a.services.Loader.Load(ctx, reg)
	if err != nil {
		logging.Error("Reload", err, "Load pass failed, keeping %d served tools", a.Registry().Len())
		return report, err
	}

	a.mu.Lock()
	a.registry = reg
	a.mu.Unlock()

	added, removed := a.services.Aggregator.Sync(reg)
	logging.Debug("Reload", "Served tools updated: %d added, %d removed", added, removed)

	for _, d := range report.Disabled {
		logging.Warn("Reload", "Server %s disabled, missing environment variables: %v", d.Name, d.MissingVars)
	}
	return report, nil
}

// CallTool invokes one tool from the current registry.
func (a *Application) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	return a.Registry().Call(ctx, name, args)
}

// Run loads the tools and serves them with the configured transport until ctx
// is cancelled or a termination signal arrives.
func (a *Application) Run(ctx context.Context) error {
	switch a.config.Transport {
	case TransportSSE:
		return runSSEMode(ctx, a)
	case TransportStdio, "":
		protocol, restore := ProtectStdout()
		defer restore()
		return runStdioMode(ctx, a, os.Stdin, protocol)
	default:
		return fmt.Errorf("unknown transport %q", a.config.Transport)
	}
}
