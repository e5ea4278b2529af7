// Package exec runs the sensor command for one host, either on this machine
// or on an SSH jump host.
package exec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/util"
)

// Result is what a single sensor command invocation produced.
// Output holds stdout and stderr interleaved, as the tool wrote them.
type Result struct {
	Output   []byte
	ExitCode int
}

// Runner runs the sensor command against one host.
// A non-zero exit status is reported through Result, not as an error;
// errors mean the command could not be run or was cut short by ctx.
type Runner interface {
	Run(ctx context.Context, host string) (Result, error)
	Close() error
}

// BuildCommand appends the host selector to the configured command:
//
//	ipmi-sensors -u admin -a NONE -h 'node01'
func BuildCommand(command, host string) string {
	return strings.TrimSpace(command) + " -h " + util.ShellQuote(host)
}

// commandNotFoundPatterns match the shell messages printed with exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound reports whether the output of a run with the given exit
// code means the sensor tool is missing, and names it when possible.
func IsCommandNotFound(output string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(output); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", true
}

// CheckResult turns a finished run into an error when the sensor tool itself
// is missing. Any other outcome, including non-zero exits, returns nil.
func CheckResult(command string, res Result) error {
	name, notFound := IsCommandNotFound(string(res.Output), res.ExitCode)
	if !notFound {
		return nil
	}
	if name == "" {
		if parts := strings.Fields(command); len(parts) > 0 {
			name = parts[0]
		} else {
			name = "command"
		}
	}
	return errors.New(errors.ErrExec,
		fmt.Sprintf("'%s' not found in PATH", name),
		fmt.Sprintf("Install FreeIPMI (which provides ipmi-sensors) or point sensor_command at the full path of '%s'.", name))
}
