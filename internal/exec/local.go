package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// child has been killed, in case a grandchild still holds them open.
const DefaultWaitDelay = 500 * time.Millisecond

// LocalRunner runs the sensor command on this machine through /bin/sh.
type LocalRunner struct {
	Command   string
	Shell     string
	WaitDelay time.Duration
}

// NewLocalRunner creates a runner for the given sensor command.
func NewLocalRunner(command string) *LocalRunner {
	return &LocalRunner{
		Command:   command,
		Shell:     "/bin/sh",
		WaitDelay: DefaultWaitDelay,
	}
}

// Run executes "<command> -h <host>" and captures combined output.
// The child is killed when ctx is done.
func (r *LocalRunner) Run(ctx context.Context, host string) (Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", BuildCommand(r.Command, host))
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = r.WaitDelay

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{Output: out.Bytes(), ExitCode: -1}, ctxErr
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			return Result{Output: out.Bytes(), ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{Output: out.Bytes(), ExitCode: -1}, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run the sensor command locally",
			"Make sure the shell and the sensor command exist and are executable.")
	}

	return Result{Output: out.Bytes()}, nil
}

// Close is a no-op; LocalRunner holds no connections.
func (r *LocalRunner) Close() error { return nil }
