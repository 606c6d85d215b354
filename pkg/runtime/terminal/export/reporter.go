package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/template"
)

type TableConfig struct {
	MinWidth  int
	MaxWidth  int
	Precision int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		MinWidth:  6,
		MaxWidth:  40,
		Precision: 4,
	}
}

// Table is one rendered report: its title, column order and flat rows.
type Table struct {
	Title   string
	Columns []string
	Rows    []map[string]any
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

// Handle prints the table as fixed-width text.
func (c *Reporter) Handle(table Table) error {
	cells := make([][]string, len(table.Rows))
	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		widths[i] = c.clamp(len(col))
	}
	for r, row := range table.Rows {
		cells[r] = make([]string, len(table.Columns))
		for i, col := range table.Columns {
			cell := c.format(row[col])
			cells[r][i] = cell
			widths[i] = max(widths[i], c.clamp(len(cell)))
		}
	}

	funcMap := template.FuncMap{
		"formatRow": func(values []string) string {
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = fmt.Sprintf(" %-*s ", widths[i], truncate(v, widths[i]))
			}
			return "|" + strings.Join(parts, "|") + "|"
		},
		"separator": func() string {
			parts := make([]string, len(widths))
			for i, w := range widths {
				parts[i] = strings.Repeat("-", w+2)
			}
			return "+" + strings.Join(parts, "+") + "+"
		},
	}

	tmpl := `
=== {{.Title}} ===
{{separator}}
{{formatRow .Columns}}
{{separator}}
{{range .Cells}}{{formatRow .}}
{{end}}{{separator}}
{{len .Cells}} row(s)
`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, struct {
		Title   string
		Columns []string
		Cells   [][]string
	}{Title: table.Title, Columns: table.Columns, Cells: cells})
}

// HandleJSON prints the rows as an indented JSON array.
func (c *Reporter) HandleJSON(table Table) error {
	enc := json.NewEncoder(c.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table.Rows); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}

func (c *Reporter) clamp(n int) int {
	return min(max(n, c.config.MinWidth), c.config.MaxWidth)
}

func (c *Reporter) format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatFloat(t, 'f', 0, 64)
		}
		return strconv.FormatFloat(t, 'f', c.config.Precision, 64)
	default:
		return fmt.Sprint(t)
	}
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "~"
}
