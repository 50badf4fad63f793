package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"toolbridge/internal/mcpserver"
	"toolbridge/internal/telemetry"
	"toolbridge/pkg/logging"
)

// ToolFactory builds ToolFuncs that open a fresh session for every call.
type ToolFactory struct {
	Connector mcpserver.Connector
	// Timeout bounds one call including connect.
	Timeout time.Duration
	LogDir  string
	// LogErrors captures each call's stderr under LogDir.
	LogErrors bool
	Observer  *telemetry.Observer
}

// NewToolFunc returns a ToolFunc bound to a private copy of params. Later
// changes to the configuration do not affect it.
func (f *ToolFactory) NewToolFunc(toolName string, params mcpserver.ServerParams) ToolFunc {
	captured := params.Clone()

	return func(ctx context.Context, args map[string]any) (result any) {
		callID := uuid.NewString()
		ctx, finish := f.Observer.StartInvocation(ctx, toolName, captured.Name, callID)

		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &InvocationError{Tool: toolName, Server: captured.Name, Err: fmt.Errorf("panic: %v", r)}
			}
			finish(err)
			if err != nil {
				logging.Debug("ToolCall", "Call %s of %s failed: %v", callID, toolName, err)
				result = FormatError(err)
			}
		}()

		logging.Debug("ToolCall", "Call %s: %s on %s", callID, toolName, captured.Name)
		result, err = f.invoke(ctx, toolName, captured, args)
		return result
	}
}

func (f *ToolFactory) invoke(ctx context.Context, toolName string, params mcpserver.ServerParams, args map[string]any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	var stderrPath string
	if f.LogErrors {
		stderrPath = mcpserver.InvocationLogPath(f.LogDir, toolName)
	}

	session, err := f.Connector.Connect(ctx, params, stderrPath)
	if err != nil {
		return nil, &InvocationError{Tool: toolName, Server: params.Name, Err: err}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logging.Debug("ToolCall", "Closing session for %s: %v", toolName, cerr)
		}
	}()

	res, err := session.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, &InvocationError{Tool: toolName, Server: params.Name, Err: err}
	}

	value, err := NormalizeResult(res)
	if err != nil {
		return nil, &InvocationError{Tool: toolName, Server: params.Name, Err: err}
	}
	return value, nil
}

func (f *ToolFactory) timeout() time.Duration {
	if f.Timeout <= 0 {
		return DefaultTimeout
	}
	return f.Timeout
}
