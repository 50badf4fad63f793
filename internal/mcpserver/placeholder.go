package mcpserver

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"toolbridge/internal/config"
)

const (
	// PlaceholderMarker prefixes values that name an environment variable.
	PlaceholderMarker = "$"
	// DefaultHomeVar is the reserved placeholder family that falls back to the
	// caller-supplied home path instead of failing.
	DefaultHomeVar = "LLMS_HOME"
)

// ErrMissingVariable is matched by every MissingVariableError.
var ErrMissingVariable = errors.New("missing environment variable")

// MissingVariableError reports a placeholder that could not be resolved.
type MissingVariableError struct {
	Server   string
	Variable string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("environment variable %s not found for server %s", e.Variable, e.Server)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// Resolver expands "$NAME" placeholders against an environment lookup.
type Resolver struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// HomePath replaces "$<HomeVar>" when the variable is unset or empty.
	HomePath string
	// HomeVar defaults to DefaultHomeVar.
	HomeVar string
}

// NewResolver returns a Resolver reading the process environment.
func NewResolver(homePath string) Resolver {
	return Resolver{LookupEnv: os.LookupEnv, HomePath: homePath, HomeVar: DefaultHomeVar}
}

// IsPlaceholder reports whether value refers to an environment variable.
func IsPlaceholder(value string) bool {
	return strings.HasPrefix(value, PlaceholderMarker)
}

// Resolve returns the literal for value. Non-placeholders pass through unchanged.
func (r Resolver) Resolve(server, value string) (string, error) {
	if !IsPlaceholder(value) {
		return value, nil
	}

	name := strings.TrimPrefix(value, PlaceholderMarker)
	envVal, found := r.lookup(name)

	if r.isHomeFamily(name) {
		if found && envVal != "" {
			return envVal, nil
		}
		return strings.Replace(value, PlaceholderMarker+r.homeVar(), r.HomePath, 1), nil
	}

	if !found {
		return "", &MissingVariableError{Server: server, Variable: name}
	}
	return envVal, nil
}

// Missing lists every unresolvable variable referenced by entry, in first-seen
// order without duplicates. Unlike resolution it never stops early.
func (r Resolver) Missing(entry config.ServerEntry) []string {
	var missing []string
	seen := make(map[string]struct{})

	check := func(value string) {
		if !IsPlaceholder(value) {
			return
		}
		name := strings.TrimPrefix(value, PlaceholderMarker)
		if r.isHomeFamily(name) {
			return
		}
		if _, found := r.lookup(name); found {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	for _, arg := range entry.Args {
		check(arg)
	}
	if entry.Env != nil {
		for pair := entry.Env.Oldest(); pair != nil; pair = pair.Next() {
			check(pair.Value)
		}
	}
	return missing
}

func (r Resolver) lookup(name string) (string, bool) {
	if r.LookupEnv == nil {
		return os.LookupEnv(name)
	}
	return r.LookupEnv(name)
}

func (r Resolver) homeVar() string {
	if r.HomeVar == "" {
		return DefaultHomeVar
	}
	return r.HomeVar
}

func (r Resolver) isHomeFamily(name string) bool {
	return strings.HasPrefix(name, r.homeVar())
}
