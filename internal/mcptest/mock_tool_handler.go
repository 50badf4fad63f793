package mcptest

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"
)

// MockToolHandler handles calls to a specific mock tool
type MockToolHandler struct {
	config MockToolConfig
	stderr io.Writer
}

// NewMockToolHandler creates a new mock tool handler
func NewMockToolHandler(config MockToolConfig, stderr io.Writer) *MockToolHandler {
	if stderr == nil {
		stderr = io.Discard
	}
	return &MockToolHandler{config: config, stderr: stderr}
}

// HandleCall picks a response for args and renders it as a tools/call result.
// A non-nil error is reported to the client as a JSON-RPC error.
func (h *MockToolHandler) HandleCall(args map[string]any) (map[string]any, error) {
	resp := h.selectResponse(args)
	if resp == nil {
		return nil, fmt.Errorf("no matching response found for tool '%s' with arguments: %v", h.config.Name, args)
	}

	if resp.Delay != "" {
		if delay, err := time.ParseDuration(resp.Delay); err == nil {
			time.Sleep(delay)
		}
	}
	if resp.Stderr != "" {
		fmt.Fprintln(h.stderr, resp.Stderr)
	}
	if resp.RPCError != "" {
		return nil, fmt.Errorf("%s", resp.RPCError)
	}
	if resp.Error != "" {
		return textResult(resp.Error, true), nil
	}

	switch v := resp.Response.(type) {
	case string:
		return textResult(renderArgs(v, args), false), nil
	case nil:
		return map[string]any{"content": []any{}}, nil
	default:
		data, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return nil, fmt.Errorf("failed to encode response for tool '%s': %w", h.config.Name, err)
		}
		return textResult(string(data), false), nil
	}
}

func (h *MockToolHandler) selectResponse(args map[string]any) *MockToolResponse {
	for i := range h.config.Responses {
		if matchesCondition(h.config.Responses[i].Condition, args) {
			return &h.config.Responses[i]
		}
	}
	// Fallback is the first response with no condition.
	for i := range h.config.Responses {
		if len(h.config.Responses[i].Condition) == 0 {
			return &h.config.Responses[i]
		}
	}
	return nil
}

func matchesCondition(condition, args map[string]any) bool {
	if len(condition) == 0 {
		return false
	}
	for key, expected := range condition {
		actual, ok := args[key]
		if !ok || !valuesEqual(expected, actual) {
			return false
		}
	}
	return true
}

// valuesEqual compares loosely since YAML and JSON disagree on number types.
func valuesEqual(expected, actual any) bool {
	if reflect.DeepEqual(expected, actual) {
		return true
	}
	return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
}

func renderArgs(tmpl string, args map[string]any) string {
	if !strings.Contains(tmpl, "{{args}}") {
		return tmpl
	}
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte("{}")
	}
	return strings.ReplaceAll(tmpl, "{{args}}", string(data))
}

func textResult(text string, isError bool) map[string]any {
	res := map[string]any{
		"content": []any{map[string]any{"type": "text", "text": text}},
	}
	if isError {
		res["isError"] = true
	}
	return res
}

// normalizeYAML converts map[any]any produced by older YAML decoders so the
// value can be JSON encoded.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
