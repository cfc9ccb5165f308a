package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column is a table column of fixed visible width.
type Column struct {
	Title string
	Width int
}

// Row holds one value per column.
type Row []string

// Table renders rows under a header and divider. The Current row (the
// active network or default wallet) is highlighted.
type Table struct {
	Columns []Column
	Rows    []Row
	Current int    // -1 = none
	Empty   string // shown instead of rows when there are none
}

// NewTable creates an empty table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, Current: -1}
}

// AddRow appends r. When current is set the row becomes the Current one.
func (t *Table) AddRow(r Row, current ...bool) {
	if len(current) > 0 && current[0] {
		t.Current = len(t.Rows)
	}
	t.Rows = append(t.Rows, r)
}

// Render returns the table as a string.
func (t *Table) Render() string {
	header := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cell := lipgloss.NewStyle().Foreground(ColorValue)
	dim := lipgloss.NewStyle().Foreground(ColorMeta)

	line := func(style func(i int) lipgloss.Style, text func(i int) string) string {
		parts := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			parts[i] = style(i).Render(fit(text(i), col.Width))
		}
		return strings.Join(parts, " ") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(line(
		func(int) lipgloss.Style { return header },
		func(i int) string { return t.Columns[i].Title }))
	sb.WriteString(line(
		func(int) lipgloss.Style { return dim },
		func(i int) string { return strings.Repeat("-", t.Columns[i].Width) }))

	if len(t.Rows) == 0 && t.Empty != "" {
		sb.WriteString(dim.Render("  "+t.Empty) + "\n")
	}

	for n, row := range t.Rows {
		style := cell
		if n == t.Current {
			style = StyleSelected
		}
		sb.WriteString(line(
			func(int) lipgloss.Style { return style },
			func(i int) string {
				if i < len(row) {
					return row[i]
				}
				return ""
			}))
	}
	return sb.String()
}

// fit truncates s to width visible cells and pads it to exactly width.
func fit(s string, width int) string {
	if lipgloss.Width(s) > width {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r)) > width {
			r = r[:len(r)-1]
		}
		s = string(r)
	}
	return padR(s, width)
}

// KeyValueBlock renders labelled values in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		sb.WriteString("  " + StyleMeta.Render(fmt.Sprintf("%-12s", p[0]+":")) + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}
