package app

import (
	"os"
	"sync"
)

var stdoutMu sync.Mutex

// ProtectStdout points os.Stdout at os.Stderr and returns the original
// stdout together with a function that puts it back. The MCP client
// libraries print transport errors to os.Stdout when a server session is
// torn down; with stdout reserved for protocol frames or command output,
// those lines must land on stderr instead.
func ProtectStdout() (*os.File, func()) {
	stdoutMu.Lock()
	defer stdoutMu.Unlock()

	original := os.Stdout
	os.Stdout = os.Stderr

	var once sync.Once
	return original, func() {
		once.Do(func() {
			stdoutMu.Lock()
			os.Stdout = original
			stdoutMu.Unlock()
		})
	}
}
