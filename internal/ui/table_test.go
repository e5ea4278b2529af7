package ui

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestNewTable(t *testing.T) {
	tbl := NewTable(
		[]TableColumn{{Title: "Name", Width: 20}, {Title: "Status", Width: 10}},
		[]table.Row{{"item1", "ok"}, {"item2", "error"}},
	)

	view := tbl.View()
	assert.Contains(t, view, "Name")
	assert.Contains(t, view, "Status")
	assert.Contains(t, view, "item1")
	assert.Contains(t, view, "item2")
}

func TestRenderSimpleTable(t *testing.T) {
	assert.Empty(t, RenderSimpleTable([]TableColumn{{Title: "A", Width: 3}}, nil))

	out := RenderSimpleTable(
		[]TableColumn{{Title: "HOST", Width: 8}, {Title: "VALUE", Width: 6}},
		[][]string{{"node01", "42"}, {"node02", "U"}},
	)
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, "node01")
	assert.Contains(t, out, "node02")
}

func TestRenderReadingsTable(t *testing.T) {
	assert.Equal(t, "No hosts polled", RenderReadingsTable(nil))

	out := RenderReadingsTable([]ReadingRow{
		{Host: "node01", Sensor: "CPU1", Value: "42", Valid: true, Duration: 120 * time.Millisecond},
		{Host: "node01", Sensor: "CPU2", Value: "U", Duration: 120 * time.Millisecond},
		{Host: "node02", Err: "timed out", Duration: 3 * time.Second},
	})

	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, out, "SENSOR")
	assert.Contains(t, out, SymbolSuccess)
	assert.Contains(t, out, SymbolWarn)
	assert.Contains(t, out, SymbolFail)
	assert.Contains(t, out, "timed out")
	assert.Contains(t, out, "120ms")
}

func TestRowSymbol(t *testing.T) {
	assert.Equal(t, SymbolSuccess, rowSymbol(ReadingRow{Valid: true}))
	assert.Equal(t, SymbolWarn, rowSymbol(ReadingRow{}))
	assert.Equal(t, SymbolFail, rowSymbol(ReadingRow{Valid: true, Err: "boom"}))
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, SymbolFail+" no hosts", RenderError("  no hosts\n"))
}

func TestRenderSummary(t *testing.T) {
	assert.Equal(t, SymbolSuccess+" 4 readings from 2/2 hosts", RenderSummary(2, 0, 4))
	assert.Equal(t, SymbolFail+" 2 readings from 1/3 hosts", RenderSummary(3, 2, 2))
}

func TestColorDisabled(t *testing.T) {
	assert.True(t, ColorDisabled(true, os.Stdout))

	t.Setenv("NO_COLOR", "1")
	assert.True(t, ColorDisabled(false, os.Stdout))
}

func TestColorDisabled_NotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, ColorDisabled(false, f))
	assert.True(t, ColorDisabled(false, nil))
}

func TestRenderCheckList(t *testing.T) {
	assert.Equal(t, "No checks to display", RenderCheckList(nil))

	out := RenderCheckList([]CheckRow{
		{Status: "pass", Category: "CONFIG", Message: "Config valid"},
		{Status: "fail", Category: "TOOL", Message: "ipmi-sensors not found", Suggestion: "Install FreeIPMI"},
		{Status: "warn", Category: "CONFIG", Message: "No config file", Suggestion: "Run init"},
		{Status: "pass", Category: "TOOL", Message: "hidden hint", Suggestion: "not shown"},
	})

	assert.Less(t, strings.Index(out, "CONFIG"), strings.Index(out, "TOOL"))
	assert.Less(t, strings.Index(out, "No config file"), strings.Index(out, "TOOL"), "grouped by category")
	assert.Contains(t, out, SymbolFail+" ipmi-sensors not found")
	assert.Contains(t, out, SymbolWarn+" No config file")
	assert.Contains(t, out, "Install FreeIPMI")
	assert.NotContains(t, out, "not shown")
}
