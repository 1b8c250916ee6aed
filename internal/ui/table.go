package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. A zero Width fits the widest cell.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
}

// NewTable creates a new table.
func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, Row(cells))
}

func (t *Table) widths() []int {
	w := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		if col.Width > 0 {
			w[i] = col.Width
			continue
		}
		w[i] = len(col.Title)
		for _, r := range t.Rows {
			if i < len(r) && len(r[i]) > w[i] {
				w[i] = len(r[i])
			}
		}
	}
	return w
}

// Render returns the full table as a string. Cells are padded by hand so
// styling never changes the column widths.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)
	widths := t.widths()

	var cells []string
	for i, col := range t.Columns {
		cells = append(cells, headerStyle.Render(pad(col.Title, widths[i])))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	cells = cells[:0]
	for _, w := range widths {
		cells = append(cells, StyleMeta.Render(strings.Repeat("-", w)))
	}
	sb.WriteString(strings.Join(cells, "  ") + "\n")

	for _, row := range t.Rows {
		cells = cells[:0]
		for i := range t.Columns {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			cells = append(cells, cellStyle.Render(pad(val, widths[i])))
		}
		sb.WriteString(strings.Join(cells, "  ") + "\n")
	}
	return sb.String()
}

// pad left-aligns s within exactly width chars, truncating with an ellipsis.
func pad(s string, width int) string {
	switch {
	case width <= 0:
		return s
	case len(s) > width && width > 1:
		return s[:width-1] + "…"
	case len(s) > width:
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-16s", p[0]+":"))
		sb.WriteString(key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}
