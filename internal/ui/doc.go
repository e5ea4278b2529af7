// Package ui renders human-facing output for ipmicollect: the check table,
// the doctor report and styled error messages. None of it is written to
// the PUTVAL stream.
//
// Colors are ANSI codes rendered through Lip Gloss. ConfigureColor drops to
// plain text for --no-color, NO_COLOR, or when the target is not a terminal.
package ui
