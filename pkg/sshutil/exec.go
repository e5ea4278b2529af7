package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"golang.org/x/crypto/ssh"
)

// closeWait bounds how long a cancelled ExecContext waits for the session
// to wind down before giving up on its output.
const closeWait = 200 * time.Millisecond

// ExecContext runs cmd on the remote side and returns stdout and stderr
// combined, plus the exit code. A non-zero exit is not an error.
// Cancelling ctx closes the session, which makes the remote sshd hang up
// on the command. Output is returned after cancellation only if the session
// wound down within closeWait; otherwise it is nil.
func (c *Client) ExecContext(ctx context.Context, cmd string) ([]byte, int, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. It will be re-dialed next cycle.")
	}
	defer session.Close()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	type result struct {
		err error
	}
	done := make(chan result, 1)
	go func() {
		done <- result{err: session.Run(cmd)}
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		// out is written by the session's copy goroutines until Run returns.
		timer := time.NewTimer(closeWait)
		defer timer.Stop()
		select {
		case <-done:
			return out.Bytes(), -1, ctx.Err()
		case <-timer.C:
			return nil, -1, ctx.Err()
		}
	case r := <-done:
		if r.err == nil {
			return out.Bytes(), 0, nil
		}
		if exitErr, ok := r.err.(*ssh.ExitError); ok {
			return out.Bytes(), exitErr.ExitStatus(), nil
		}
		return out.Bytes(), -1, errors.WrapWithCode(r.err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command on %s", c.Host),
			"Check that the sensor command exists on the jump host.")
	}
}
