// Package util provides small helpers shared by the collector packages.
package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// The result is passed to sh -c as one literal word.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}
