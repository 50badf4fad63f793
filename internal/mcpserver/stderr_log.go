package mcpserver

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// lazyFile is an append-only log file that is only created on first write,
// so servers that never use stderr leave nothing behind.
type lazyFile struct {
	path string

	mu     sync.Mutex
	file   *os.File
	err    error
	closed bool
}

// newLazyFile returns nil for an empty path.
func newLazyFile(path string) *lazyFile {
	if path == "" {
		return nil
	}
	return &lazyFile{path: path}
}

func (l *lazyFile) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, os.ErrClosed
	}
	if l.file == nil && l.err == nil {
		l.file, l.err = openLog(l.path)
	}
	if l.err != nil {
		// Keep draining so the subprocess never blocks on a full pipe.
		return len(p), nil
	}
	return l.file.Write(p)
}

func (l *lazyFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// DiscoveryLogPath is where discovery sessions for name write stderr.
func DiscoveryLogPath(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, SafeName(name)+"_discovery.stderr.log")
}

// InvocationLogPath is where invocation sessions of tool write stderr.
func InvocationLogPath(dir, tool string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, SafeName(tool)+".stderr.log")
}
