package aggregator

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// NormalizeResult flattens a tools/call result into plain values. A result
// flagged isError becomes an error carrying its text.
func NormalizeResult(res *mcp.CallToolResult) (any, error) {
	if res == nil {
		return nil, nil
	}
	if res.IsError {
		return nil, errors.New(resultText(res))
	}
	if res.Content == nil {
		return res, nil
	}

	out := make([]any, 0, len(res.Content))
	for _, c := range res.Content {
		out = append(out, NormalizeContent(c))
	}
	return out, nil
}

// NormalizeContent converts one content value into plain data. Protocol
// content types are exported through their wire form. NormalizeResult only
// passes those; the remaining cases serve callers normalizing values from
// other sources, such as results built by other clients. Other structs
// become a map of their exported fields and everything else is returned
// as is.
func NormalizeContent(v any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case mcp.Content:
		if m, ok := exportJSON(c); ok {
			return m
		}
		return attributeBag(c)
	default:
		if m := attributeBag(v); m != nil {
			return m
		}
		return v
	}
}

func exportJSON(v any) (map[string]any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

// attributeBag returns exported fields of a struct or struct pointer, or nil.
func attributeBag(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	bag := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		bag[field.Name] = rv.Field(i).Interface()
	}
	return bag
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch text := c.(type) {
		case mcp.TextContent:
			if text.Text != "" {
				parts = append(parts, text.Text)
			}
		case *mcp.TextContent:
			if text != nil && text.Text != "" {
				parts = append(parts, text.Text)
			}
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "\n")
}
