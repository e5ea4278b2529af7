package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/rileyhilliard/ipmicollect/internal/util"
	"github.com/rileyhilliard/ipmicollect/pkg/sshutil"
)

// validToolName matches names safe to pass to "command -v": letters, digits,
// and . _ + - /, not starting with a separator.
var validToolName = regexp.MustCompile(`^[a-zA-Z0-9/][a-zA-Z0-9._+/-]*$`)

// ToolName returns the program a sensor command runs.
func ToolName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SensorToolCheck verifies the sensor tool is installed where it will run:
// on the jump host when one is set, locally otherwise.
type SensorToolCheck struct {
	Command  string
	Jump     string
	Options  sshutil.DialOptions
	Dial     DialFunc                     // defaults to DialSSH
	LookPath func(string) (string, error) // defaults to exec.LookPath
}

func (c *SensorToolCheck) Name() string     { return "sensor_tool" }
func (c *SensorToolCheck) Category() string { return "TOOL" }

func (c *SensorToolCheck) Run(ctx context.Context) CheckResult {
	tool := ToolName(c.Command)
	if !validToolName.MatchString(tool) {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't tell which program sensor_command runs: %q", c.Command),
			Suggestion: "Start sensor_command with the tool name, e.g. 'ipmi-sensors -u admin -a NONE'",
		}
	}

	if c.Jump != "" {
		return c.runRemote(ctx, tool)
	}

	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(tool)
	if err != nil {
		return missingTool(tool, "this machine")
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s found: %s", tool, path),
	}
}

func (c *SensorToolCheck) runRemote(ctx context.Context, tool string) CheckResult {
	dial := c.Dial
	if dial == nil {
		dial = DialSSH
	}
	conn, err := dial(ctx, c.Jump, c.Options)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't look for %s: jump host %s unreachable", tool, c.Jump),
			Suggestion: firstLine(err),
		}
	}
	defer conn.Close()

	out, code, err := conn.ExecContext(ctx, "command -v "+util.ShellQuote(tool))
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't look for %s on %s", tool, c.Jump),
			Suggestion: firstLine(err),
		}
	}
	if code != 0 {
		return missingTool(tool, c.Jump)
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s found on %s: %s", tool, c.Jump, strings.TrimSpace(string(out))),
	}
}

func missingTool(tool, where string) CheckResult {
	return CheckResult{
		Status:     StatusFail,
		Message:    fmt.Sprintf("%s not found on %s", tool, where),
		Suggestion: "Install FreeIPMI (provides ipmi-sensors) or set sensor_command to the full path",
	}
}
