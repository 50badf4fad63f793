package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"toolbridge/internal/config"
	"toolbridge/internal/mcpserver"
	"toolbridge/pkg/logging"
)

// DocumentSource supplies the raw server document; *config.Store is one.
type DocumentSource interface {
	Read() (config.Document, error)
}

// LoadReport summarizes one load pass.
type LoadReport struct {
	Configured int
	Valid      int
	Disabled   []mcpserver.DisabledServer
	// Tools is the number of distinct tool names after the merge.
	Tools int
	// Registrations counts every RegisterTool call, overrides included.
	Registrations int
	Duration      time.Duration
}

// Loader runs load passes and owns their results. Each pass replaces the
// previous valid server set and tool index wholesale.
type Loader struct {
	Source     DocumentSource
	Resolver   mcpserver.Resolver
	Discoverer *Discoverer
	Factory    *ToolFactory

	// pass serializes load passes.
	pass sync.Mutex

	mu         sync.RWMutex
	resolution mcpserver.Resolution
	resolved   bool
	index      *ToolIndex
}

// Load reads, resolves, discovers and registers every tool into sink.
// Only a failure to read the document is returned; server failures are
// logged and leave that server with no tools.
func (l *Loader) Load(ctx context.Context, sink Registrar) (LoadReport, error) {
	l.pass.Lock()
	defer l.pass.Unlock()

	start := time.Now()

	doc, err := l.Source.Read()
	if err != nil {
		if !errors.Is(err, config.ErrConfiguration) {
			err = fmt.Errorf("%w: %v", config.ErrConfiguration, err)
		}
		return LoadReport{}, err
	}

	res := l.Resolve(doc)
	report := LoadReport{
		Configured: len(doc.Names()),
		Valid:      len(res.Valid),
		Disabled:   res.Disabled,
	}

	if report.Configured == 0 {
		logging.Info("Loader", "No MCP servers configured.")
		l.publishIndex(NewToolIndex())
		report.Duration = time.Since(start)
		return report, nil
	}

	discovered := l.Discoverer.DiscoverAll(ctx, res.Valid)

	// Merge strictly in configuration order so later servers win name
	// collisions regardless of which discovery finished first.
	index := NewToolIndex()
	for i, params := range res.Valid {
		index.AddServer(params.Name)
		for _, tool := range discovered[i] {
			fn := l.Factory.NewToolFunc(tool.Name, params)
			sink.RegisterTool(fn, NewToolDefinition(tool), params.Name)
			index.Add(params.Name, tool.Name)
			report.Registrations++
		}
	}
	l.publishIndex(index)

	report.Tools = index.Len()
	report.Duration = time.Since(start)
	logging.Info("Loader", "Loaded %d tools from %d of %d servers in %s",
		report.Tools, report.Valid, report.Configured, report.Duration.Round(time.Millisecond))
	return report, nil
}

// Resolve resolves doc and publishes the result as the current valid set.
func (l *Loader) Resolve(doc config.Document) mcpserver.Resolution {
	res := mcpserver.ResolveServers(doc, l.Resolver)

	l.mu.Lock()
	l.resolution = res
	l.resolved = true
	l.mu.Unlock()
	return res
}

func (l *Loader) publishIndex(index *ToolIndex) {
	l.mu.Lock()
	l.index = index
	l.mu.Unlock()
}

// ValidServers returns a copy of the servers that resolved in the last pass.
func (l *Loader) ValidServers() []mcpserver.ServerParams {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]mcpserver.ServerParams, 0, len(l.resolution.Valid))
	for _, p := range l.resolution.Valid {
		out = append(out, p.Clone())
	}
	return out
}

// Resolution returns the last published resolution. ok is false until the
// first Resolve or Load.
func (l *Loader) Resolution() (res mcpserver.Resolution, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resolution, l.resolved
}

// Index returns the last published tool index. It may be nil before the
// first load.
func (l *Loader) Index() *ToolIndex {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index
}
