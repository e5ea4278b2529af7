package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess = "✓" // Host returned readings
	SymbolFail    = "✗" // Host returned nothing
	SymbolWarn    = "!" // Reading present but unavailable
)
