package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format for CLI commands
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

const (
	maxDescriptionWidth = 60
	maxCellWidth        = 40
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return f, nil
	case "":
		return OutputFormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Printer writes command results in one output format.
type Printer struct {
	Format OutputFormat
	Out    io.Writer
	// Color enables ANSI styling in tables.
	Color bool
}

// NewPrinter creates a printer; colors are enabled when out is a terminal.
func NewPrinter(format OutputFormat, out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	return &Printer{Format: format, Out: out, Color: color}
}

// ToolRow is one line of a tool listing.
type ToolRow struct {
	Name        string `json:"name" yaml:"name"`
	Server      string `json:"server" yaml:"server"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ServerRow is one line of a server listing.
type ServerRow struct {
	Name           string   `json:"name" yaml:"name"`
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Command        string   `json:"command" yaml:"command"`
	Tools          []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	MissingEnvVars []string `json:"missingEnvVars,omitempty" yaml:"missingEnvVars,omitempty"`
}

// PrintTools renders a tool listing.
func (p *Printer) PrintTools(rows []ToolRow) error {
	if p.Format != OutputFormatTable {
		return p.Print(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.Out, p.paint(text.FgYellow, "No tools found"))
		return nil
	}

	t := p.newTable("NAME", "SERVER", "DESCRIPTION")
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Name,
			p.paint(text.FgCyan, r.Server),
			runewidth.Truncate(firstLine(r.Description), maxDescriptionWidth, "..."),
		})
	}
	t.Render()
	fmt.Fprintf(p.Out, "\n%s %d tools\n", p.paint(text.FgHiBlue, "Total:"), len(rows))
	return nil
}

// PrintServers renders a server listing. The original document (or Info) is
// passed as raw so json and yaml output keep its full structure.
func (p *Printer) PrintServers(rows []ServerRow, raw any) error {
	if p.Format != OutputFormatTable {
		if raw == nil {
			raw = rows
		}
		return p.Print(raw)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.Out, p.paint(text.FgYellow, "No servers configured"))
		return nil
	}

	t := p.newTable("NAME", "STATUS", "COMMAND", "TOOLS")
	for _, r := range rows {
		status := p.paint(text.FgGreen, "enabled")
		detail := toolSummary(r.Tools)
		if !r.Enabled {
			status = p.paint(text.FgRed, "disabled")
			detail = "missing: " + strings.Join(r.MissingEnvVars, ", ")
		}
		t.AppendRow(table.Row{r.Name, status, runewidth.Truncate(r.Command, maxCellWidth, "..."), detail})
	}
	t.Render()
	return nil
}

// Print renders any value. Tables fall back to a property listing for
// objects and a row per element for arrays.
func (p *Printer) Print(v any) error {
	switch p.Format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(p.Out, string(data))
		return err
	case OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to convert to YAML: %w", err)
		}
		_, err = p.Out.Write(data)
		return err
	case OutputFormatTable, "":
		return p.printTable(v)
	default:
		return fmt.Errorf("unsupported output format: %s", p.Format)
	}
}

func (p *Printer) printTable(v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(p.Out, s)
		return err
	}

	// Round-trip through JSON so structs, ordered maps and content blocks all
	// arrive as plain maps and slices.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}

	switch d := generic.(type) {
	case map[string]any:
		p.formatKeyValueTable(d)
	case []any:
		p.formatTableFromArray(d)
	case nil:
		fmt.Fprintln(p.Out, p.paint(text.FgHiBlack, "-"))
	default:
		fmt.Fprintln(p.Out, d)
	}
	return nil
}

// formatTableFromArray prints text content blocks as plain text and any
// other array of objects as a table keyed by the first element's fields.
func (p *Printer) formatTableFromArray(items []any) {
	if len(items) == 0 {
		fmt.Fprintln(p.Out, p.paint(text.FgYellow, "No items found"))
		return
	}

	if lines, ok := textBlocks(items); ok {
		for _, line := range lines {
			fmt.Fprintln(p.Out, line)
		}
		return
	}

	first, ok := items[0].(map[string]any)
	if !ok {
		for _, item := range items {
			fmt.Fprintln(p.Out, item)
		}
		return
	}

	columns := sortedKeys(first)
	headers := make([]any, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
	}
	t := p.newTable(headers...)
	for _, item := range items {
		m, _ := item.(map[string]any)
		row := make(table.Row, len(columns))
		for i, col := range columns {
			row[i] = p.formatCell(m[col])
		}
		t.AppendRow(row)
	}
	t.Render()
}

func (p *Printer) formatKeyValueTable(data map[string]any) {
	t := p.newTable("PROPERTY", "VALUE")
	for _, key := range sortedKeys(data) {
		t.AppendRow(table.Row{p.paint(text.FgYellow, key), p.formatCell(data[key])})
	}
	t.Render()
}

func (p *Printer) formatCell(v any) any {
	switch val := v.(type) {
	case nil:
		return p.paint(text.FgHiBlack, "-")
	case string:
		return runewidth.Truncate(val, maxCellWidth, "...")
	case []any:
		return fmt.Sprintf("[%d items]", len(val))
	case map[string]any:
		return "[object]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (p *Printer) newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.Out)
	t.SetStyle(table.StyleRounded)
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = p.paint(text.FgHiCyan, fmt.Sprint(h))
	}
	t.AppendHeader(row)
	return t
}

func (p *Printer) paint(c text.Color, s string) string {
	if !p.Color {
		return s
	}
	return c.Sprint(s)
}

// textBlocks returns the text of items when every item is a text content
// block.
func textBlocks(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok || m["type"] != "text" {
			return nil, false
		}
		s, ok := m["text"].(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func toolSummary(tools []string) string {
	switch len(tools) {
	case 0:
		return "none"
	case 1, 2:
		return strings.Join(tools, ", ")
	default:
		return fmt.Sprintf("%s, %s (+%d more)", tools[0], tools[1], len(tools)-2)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
