// Package admin edits the raw server document and reports what the last load
// made of it. Changes take effect on the next load pass.
package admin

import (
	"fmt"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"toolbridge/internal/aggregator"
	"toolbridge/internal/config"
	"toolbridge/internal/mcpserver"
	"toolbridge/pkg/logging"
)

// ConfigStore is the persistence the service edits; *config.Store is one.
type ConfigStore interface {
	Read() (config.Document, error)
	Write(config.Document) error
	EnsureUserConfig() error
	Path() string
}

// ServerInfo is a valid server as configured, plus the tools it contributed.
type ServerInfo struct {
	Command string         `json:"command" yaml:"command"`
	Args    []string       `json:"args,omitempty" yaml:"args,omitempty"`
	Env     *config.EnvMap `json:"env,omitempty" yaml:"env,omitempty"`
	Tools   []string       `json:"tools" yaml:"tools"`
}

// DisabledInfo explains why a server is not loaded.
type DisabledInfo struct {
	MissingEnvVars []string `json:"missingEnvVars" yaml:"missingEnvVars"`
}

// Info is the administrative view of the configuration.
type Info struct {
	ConfigPath      string                                       `json:"configPath" yaml:"configPath"`
	MCPServers      *orderedmap.OrderedMap[string, ServerInfo]   `json:"mcpServers" yaml:"mcpServers"`
	DisabledServers *orderedmap.OrderedMap[string, DisabledInfo] `json:"disabledServers" yaml:"disabledServers"`
}

// Service implements the administrative operations.
type Service struct {
	store  ConfigStore
	loader *aggregator.Loader

	// mu serializes read-modify-write cycles on the document.
	mu sync.Mutex
}

// NewService creates a Service. loader supplies the resolver and the tools
// found by the last load; it may be nil, in which case no tools are reported.
func NewService(store ConfigStore, loader *aggregator.Loader) *Service {
	return &Service{store: store, loader: loader}
}

// AddServer adds a new server entry and returns the updated document.
func (s *Service) AddServer(name string, entry config.ServerEntry) (config.Document, error) {
	if name == "" {
		return config.Document{}, fmt.Errorf("%w: server name is required", config.ErrConfiguration)
	}
	if entry.Command == "" {
		return config.Document{}, fmt.Errorf("%w: command is required for server %s", config.ErrConfiguration, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.EnsureUserConfig(); err != nil {
		return config.Document{}, fmt.Errorf("failed to prepare configuration: %w", err)
	}
	doc, err := s.read()
	if err != nil {
		return config.Document{}, err
	}
	if _, exists := doc.Servers().Get(name); exists {
		return config.Document{}, fmt.Errorf("%w: server %s already exists", config.ErrConfiguration, name)
	}

	doc.Servers().Set(name, entry.Clone())
	if err := s.write(doc); err != nil {
		return config.Document{}, err
	}
	logging.Info("Admin", "Added MCP server %s", name)
	return doc, nil
}

// UpdateServer replaces an existing entry whole.
func (s *Service) UpdateServer(name string, entry config.ServerEntry) (config.Document, error) {
	if entry.Command == "" {
		return config.Document{}, fmt.Errorf("%w: command is required for server %s", config.ErrConfiguration, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return config.Document{}, err
	}
	if _, exists := doc.Servers().Get(name); !exists {
		return config.Document{}, fmt.Errorf("%w: server %s not found", config.ErrConfiguration, name)
	}

	doc.Servers().Set(name, entry.Clone())
	if err := s.write(doc); err != nil {
		return config.Document{}, err
	}
	logging.Info("Admin", "Updated MCP server %s", name)
	return doc, nil
}

// DeleteServer removes an entry.
func (s *Service) DeleteServer(name string) (config.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return config.Document{}, err
	}
	if _, exists := doc.Servers().Delete(name); !exists {
		return config.Document{}, fmt.Errorf("%w: server %s not found", config.ErrConfiguration, name)
	}

	if err := s.write(doc); err != nil {
		return config.Document{}, err
	}
	logging.Info("Admin", "Deleted MCP server %s", name)
	return doc, nil
}

// Info reports valid servers with their tools and disabled servers with the
// variables they are missing. Once a load has published a resolution, a server
// is valid only if that load found it valid; servers added since then show as
// disabled until the next load. Before the first load the current document is
// resolved instead, without touching the loader's published state.
func (s *Service) Info() (Info, error) {
	doc, err := s.read()
	if err != nil {
		return Info{}, err
	}

	var resolver mcpserver.Resolver
	var index *aggregator.ToolIndex
	if s.loader != nil {
		resolver = s.loader.Resolver
		index = s.loader.Index()
	}
	current := mcpserver.ResolveServers(doc, resolver)

	valid := current.IsValid
	if s.loader != nil {
		if published, ok := s.loader.Resolution(); ok {
			names := make(map[string]bool, len(published.Valid))
			for _, name := range published.ValidNames() {
				names[name] = true
			}
			valid = func(name string) bool { return names[name] }
		}
	}

	info := Info{
		ConfigPath:      s.store.Path(),
		MCPServers:      orderedmap.New[string, ServerInfo](),
		DisabledServers: orderedmap.New[string, DisabledInfo](),
	}

	for pair := doc.Servers().Oldest(); pair != nil; pair = pair.Next() {
		name, entry := pair.Key, pair.Value
		if !valid(name) {
			missing := current.Missing[name]
			if missing == nil {
				missing = []string{}
			}
			info.DisabledServers.Set(name, DisabledInfo{MissingEnvVars: missing})
			continue
		}

		tools := index.Tools(name)
		if tools == nil {
			tools = []string{}
		}
		info.MCPServers.Set(name, ServerInfo{
			Command: entry.Command,
			Args:    entry.Args,
			Env:     entry.Env,
			Tools:   tools,
		})
	}
	return info, nil
}

func (s *Service) read() (config.Document, error) {
	doc, err := s.store.Read()
	if err != nil {
		return config.Document{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	return doc, nil
}

func (s *Service) write(doc config.Document) error {
	if err := s.store.Write(doc); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return nil
}
