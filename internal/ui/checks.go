package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CheckRow is one line of the doctor report.
type CheckRow struct {
	Status     string // "pass", "warn", "fail"
	Category   string
	Message    string
	Suggestion string
}

// RenderCheckList renders check results grouped by category, in the order
// categories first appear.
func RenderCheckList(rows []CheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	categories := make(map[string][]CheckRow)
	var order []string
	for _, row := range rows {
		if _, ok := categories[row.Category]; !ok {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	var b strings.Builder
	for _, cat := range order {
		b.WriteString(headerStyle.Render(cat))
		b.WriteString("\n")

		for _, row := range categories[cat] {
			var icon string
			switch row.Status {
			case "pass":
				icon = successStyle.Render(SymbolSuccess)
			case "warn":
				icon = warnStyle.Render(SymbolWarn)
			default:
				icon = errorStyle.Render(SymbolFail)
			}
			b.WriteString("  " + icon + " " + row.Message + "\n")

			if row.Suggestion != "" && row.Status != "pass" {
				b.WriteString("    " + mutedStyle.Render(row.Suggestion) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
