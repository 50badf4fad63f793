package app

import (
	"fmt"
	"path/filepath"

	"toolbridge/internal/admin"
	"toolbridge/internal/aggregator"
	"toolbridge/internal/config"
	"toolbridge/internal/mcpserver"
	"toolbridge/internal/telemetry"
	"toolbridge/pkg/logging"
)

// Services holds the initialized application graph
type Services struct {
	Store      *config.Store
	Loader     *aggregator.Loader
	Admin      *admin.Service
	Aggregator *aggregator.AggregatorServer
	Observer   *telemetry.Observer
}

// InitializeServices wires the store, the loader pipeline, the admin service
// and the aggregator server. Nothing is spawned until the first load.
func InitializeServices(cfg *Config) (*Services, error) {
	store, err := config.NewStore(cfg.UserConfigDir, cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config store: %w", err)
	}

	observer, err := telemetry.NewGlobalObserver()
	if err != nil {
		// Instruments are optional; a nil observer records nothing.
		logging.Warn("Bootstrap", "Telemetry disabled: %v", err)
		observer = nil
	}

	settings := cfg.Settings
	logDir := ""
	if settings.HomePath != "" {
		logDir = filepath.Join(settings.HomePath, "logs")
	}

	connector := mcpserver.NewStdioConnector()
	loader := &aggregator.Loader{
		Source:   store,
		Resolver: mcpserver.NewResolver(settings.HomePath),
		Discoverer: &aggregator.Discoverer{
			Connector:      connector,
			Timeout:        settings.Timeout,
			LogDir:         logDir,
			MaxConcurrency: settings.MaxDiscovery,
			Observer:       observer,
		},
		Factory: &aggregator.ToolFactory{
			Connector: connector,
			Timeout:   settings.Timeout,
			LogDir:    logDir,
			LogErrors: settings.LogErrors,
			Observer:  observer,
		},
	}

	aggServer := aggregator.NewAggregatorServer(aggregator.AggregatorConfig{
		Version: cfg.Version,
		Host:    cfg.Host,
		Port:    cfg.Port,
	})

	logging.Debug("Bootstrap", "Config candidates: %v, stderr logs in %q", store.Candidates, logDir)

	return &Services{
		Store:      store,
		Loader:     loader,
		Admin:      admin.NewService(store, loader),
		Aggregator: aggServer,
		Observer:   observer,
	}, nil
}
