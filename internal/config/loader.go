package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"toolbridge/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir  = ".config/toolbridge"
	configFileName = "mcp.json"
)

// Store reads and writes the server document over a layered lookup.
type Store struct {
	// Candidates are tried in order on Read.
	Candidates []string
	// WritePath is where Write and EnsureUserConfig persist the document.
	WritePath string
}

// NewStore builds a store that prefers the user configuration over the one
// found under basePath. An empty basePath means the working directory.
func NewStore(userDir, basePath string) (*Store, error) {
	if userDir == "" {
		dir, err := GetUserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine user config dir: %w", err)
		}
		userDir = dir
	}
	if basePath == "" {
		wd, err := osGetwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		basePath = wd
	}

	userPath := filepath.Join(userDir, configFileName)
	return &Store{
		Candidates: []string{userPath, filepath.Join(basePath, configFileName)},
		WritePath:  userPath,
	}, nil
}

// Read returns the first existing, parseable document among the candidates.
func (s *Store) Read() (Document, error) {
	for _, path := range s.Candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			logging.Warn("Config", "Failed to read %s: %v", path, err)
			continue
		}

		doc, err := ParseDocument(data)
		if err != nil {
			logging.Warn("Config", "Failed to parse mcp.json at %s: %v", path, err)
			continue
		}

		logging.Debug("Config", "Loaded server document from %s", path)
		return doc, nil
	}
	return NewDocument(), nil
}

// Write persists the document to WritePath, replacing any previous content.
func (s *Store) Write(doc Document) error {
	if s.WritePath == "" {
		return fmt.Errorf("%w: no write path configured", ErrConfiguration)
	}

	data, err := doc.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode server document: %w", err)
	}

	dir := filepath.Dir(s.WritePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".mcp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.WritePath); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.WritePath, err)
	}
	return nil
}

// EnsureUserConfig writes the default document to WritePath if nothing is there yet.
func (s *Store) EnsureUserConfig() error {
	if _, err := os.Stat(s.WritePath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", s.WritePath, err)
	}
	logging.Info("Config", "Creating user configuration at %s", s.WritePath)
	return s.Write(DefaultDocument())
}

// Path returns the path administrative changes are written to.
func (s *Store) Path() string {
	return s.WritePath
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
