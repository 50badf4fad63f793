package mcpserver

import (
	"toolbridge/internal/config"
	"toolbridge/pkg/logging"
)

// ResolveServers resolves every server in doc independently, in document
// order. A server whose args or env cannot be fully resolved is disabled; the
// first failure stops evaluation of that server's remaining entries.
func ResolveServers(doc config.Document, r Resolver) Resolution {
	res := Resolution{Missing: make(map[string][]string)}
	if doc.MCPServers == nil {
		return res
	}

	for pair := doc.MCPServers.Oldest(); pair != nil; pair = pair.Next() {
		name, entry := pair.Key, pair.Value

		missing := r.Missing(entry)
		res.Missing[name] = missing

		params, err := resolveEntry(name, entry, r)
		if err != nil {
			logging.Debug("MCPServerLoader", "Skipping server %s: %v", name, err)
			res.Disabled = append(res.Disabled, DisabledServer{Name: name, MissingVars: missing})
			continue
		}
		res.Valid = append(res.Valid, params)
	}

	if len(res.Disabled) > 0 {
		logging.Info("MCPServerLoader", "Resolved %d MCP servers, %d disabled", len(res.Valid), len(res.Disabled))
	} else {
		logging.Debug("MCPServerLoader", "Resolved %d MCP servers", len(res.Valid))
	}
	return res
}

func resolveEntry(name string, entry config.ServerEntry, r Resolver) (ServerParams, error) {
	params := ServerParams{Name: name, Command: entry.Command}

	if len(entry.Args) > 0 {
		params.Args = make([]string, 0, len(entry.Args))
		for _, arg := range entry.Args {
			v, err := r.Resolve(name, arg)
			if err != nil {
				return ServerParams{}, err
			}
			params.Args = append(params.Args, v)
		}
	}

	if entry.Env != nil && entry.Env.Len() > 0 {
		params.Env = make(map[string]string, entry.Env.Len())
		for pair := entry.Env.Oldest(); pair != nil; pair = pair.Next() {
			v, err := r.Resolve(name, pair.Value)
			if err != nil {
				return ServerParams{}, err
			}
			params.Env[pair.Key] = v
		}
	}

	return params, nil
}
