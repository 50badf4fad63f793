package aggregator

import (
	"errors"
	"fmt"
)

// ErrorPrefix starts every string a ToolFunc returns in place of an error.
const ErrorPrefix = "Error executing tool: "

var (
	// ErrDiscovery is matched by every DiscoveryError.
	ErrDiscovery = errors.New("discovery failed")
	// ErrInvocation is matched by every InvocationError.
	ErrInvocation = errors.New("invocation failed")
	// ErrToolNotFound is returned when calling a name nothing registered.
	ErrToolNotFound = errors.New("tool not found")
)

// DiscoveryError is a failure to list one server's tools. It is logged and
// turns into an empty tool list; it never aborts a load.
type DiscoveryError struct {
	Server string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery of server %s failed: %v", e.Server, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// InvocationError is a failure during one tool call. ToolFuncs convert it to
// a string value before returning.
type InvocationError struct {
	Tool   string
	Server string
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %s on server %s: %v", e.Tool, e.Server, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// FormatError renders err as a tool result value.
func FormatError(err error) string {
	var ie *InvocationError
	if errors.As(err, &ie) && ie.Err != nil {
		return ErrorPrefix + ie.Err.Error()
	}
	return ErrorPrefix + err.Error()
}
