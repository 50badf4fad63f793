package aggregator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"toolbridge/internal/mcpserver"
	"toolbridge/internal/telemetry"
	"toolbridge/pkg/logging"
)

// DefaultTimeout bounds a session when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Discoverer lists the tools of many servers concurrently.
type Discoverer struct {
	Connector mcpserver.Connector
	// Timeout bounds connect, initialize and list for one server.
	Timeout time.Duration
	// LogDir receives <name>_discovery.stderr.log files; empty discards stderr.
	LogDir string
	// MaxConcurrency caps in-flight discoveries; 0 means unlimited.
	MaxConcurrency int
	Observer       *telemetry.Observer
}

// DiscoverAll returns the tools of servers[i] at index i. A server that fails
// yields an empty list, so the result always has len(servers) entries.
func (d *Discoverer) DiscoverAll(ctx context.Context, servers []mcpserver.ServerParams) [][]ToolDescriptor {
	results := make([][]ToolDescriptor, len(servers))
	if len(servers) == 0 {
		return results
	}

	// A plain Group: a failing server must not cancel its siblings.
	var g errgroup.Group
	if d.MaxConcurrency > 0 {
		g.SetLimit(d.MaxConcurrency)
	}

	start := time.Now()
	for i, params := range servers {
		g.Go(func() error {
			results[i] = d.discoverServer(ctx, params)
			return nil
		})
	}
	_ = g.Wait()

	logging.Debug("Discovery", "Discovered %d servers in %s", len(servers), time.Since(start).Round(time.Millisecond))
	return results
}

func (d *Discoverer) discoverServer(ctx context.Context, params mcpserver.ServerParams) (tools []ToolDescriptor) {
	if params.Command == "" {
		logging.Info("Discovery", "No command specified for server %s, skipping", params.Name)
		return nil
	}

	ctx, done := d.Observer.StartDiscovery(ctx, params.Name)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = &DiscoveryError{Server: params.Name, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			tools = nil
			logging.Warn("Discovery", "%v", err)
		}
		done(len(tools), err)
	}()

	tools, err = d.listTools(ctx, params)
	return tools
}

func (d *Discoverer) listTools(ctx context.Context, params mcpserver.ServerParams) ([]ToolDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	session, err := d.Connector.Connect(ctx, params, mcpserver.DiscoveryLogPath(d.LogDir, params.Name))
	if err != nil {
		return nil, &DiscoveryError{Server: params.Name, Err: err}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logging.Debug("Discovery", "Closing session for %s: %v", params.Name, cerr)
		}
	}()

	mcpTools, err := session.ListTools(ctx)
	if err != nil {
		return nil, &DiscoveryError{Server: params.Name, Err: err}
	}

	tools := make([]ToolDescriptor, 0, len(mcpTools))
	for _, t := range mcpTools {
		tools = append(tools, descriptorFromTool(params.Name, t))
	}
	logging.Debug("Discovery", "Server %s advertises %d tools", params.Name, len(tools))
	return tools, nil
}

func (d *Discoverer) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}
