package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a new Bubbles table with default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{
			Title: c.Title,
			Width: c.Width,
		}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused, so the selected row must look like any other.
	s.Selected = s.Cell

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	return NewTable(columns, tableRows).View()
}

// ReadingRow is one line of the check report. A host that failed has a
// single row with Err set and no sensor.
type ReadingRow struct {
	Host     string
	Sensor   string
	Value    string
	Valid    bool
	Duration time.Duration
	Err      string
}

// RenderReadingsTable renders check results, one row per reading.
func RenderReadingsTable(rows []ReadingRow) string {
	if len(rows) == 0 {
		return "No hosts polled"
	}

	columns := []TableColumn{
		{Title: "", Width: 2},
		{Title: "HOST", Width: widest(rows, func(r ReadingRow) string { return r.Host }, 4)},
		{Title: "SENSOR", Width: widest(rows, func(r ReadingRow) string { return r.Sensor }, 6)},
		{Title: "VALUE", Width: widest(rows, func(r ReadingRow) string { return r.Value }, 5)},
		{Title: "TIME", Width: 8},
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		value := r.Value
		if r.Err != "" {
			value = r.Err
		}
		cells[i] = []string{
			rowSymbol(r),
			r.Host,
			r.Sensor,
			value,
			r.Duration.Round(time.Millisecond).String(),
		}
	}
	// Error text can be long; let the value column grow to fit it.
	for _, r := range rows {
		if w := lipgloss.Width(r.Err); w > columns[3].Width {
			columns[3].Width = w
		}
	}

	return RenderSimpleTable(columns, cells)
}

// RenderError renders a one-line red failure message.
func RenderError(msg string) string {
	style := lipgloss.NewStyle().Foreground(ColorError)
	return style.Render(SymbolFail + " " + strings.TrimSpace(msg))
}

// RenderSummary renders the closing line of a check run.
func RenderSummary(hosts, failed, readings int) string {
	var b strings.Builder
	if failed == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(ColorSuccess).Render(SymbolSuccess))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(ColorError).Render(SymbolFail))
	}
	b.WriteString(" ")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorMuted).Render(
		summaryText(hosts, failed, readings)))
	return b.String()
}

func summaryText(hosts, failed, readings int) string {
	return fmt.Sprintf("%d readings from %d/%d hosts", readings, hosts-failed, hosts)
}

func rowSymbol(r ReadingRow) string {
	switch {
	case r.Err != "":
		return SymbolFail
	case !r.Valid:
		return SymbolWarn
	default:
		return SymbolSuccess
	}
}

func widest(rows []ReadingRow, field func(ReadingRow) string, floor int) int {
	w := floor
	for _, r := range rows {
		if n := lipgloss.Width(field(r)); n > w {
			w = n
		}
	}
	return w + 1
}
