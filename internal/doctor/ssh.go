package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/ipmicollect/pkg/sshutil"
)

// Conn is the part of an SSH connection the checks use.
type Conn interface {
	ExecContext(ctx context.Context, cmd string) ([]byte, int, error)
	Close() error
}

// DialFunc opens a connection to host.
type DialFunc func(ctx context.Context, host string, opts sshutil.DialOptions) (Conn, error)

// DialSSH dials with pkg/sshutil.
func DialSSH(ctx context.Context, host string, opts sshutil.DialOptions) (Conn, error) {
	c, err := sshutil.Dial(ctx, host, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// JumpHostCheck verifies the jump host accepts an SSH connection.
type JumpHostCheck struct {
	Jump    string
	Options sshutil.DialOptions
	Dial    DialFunc // defaults to DialSSH
}

func (c *JumpHostCheck) Name() string     { return "jump_host" }
func (c *JumpHostCheck) Category() string { return "SSH" }

func (c *JumpHostCheck) Run(ctx context.Context) CheckResult {
	dial := c.Dial
	if dial == nil {
		dial = DialSSH
	}

	start := time.Now()
	conn, err := dial(ctx, c.Jump, c.Options)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    fmt.Sprintf("Can't connect to jump host %s", c.Jump),
			Suggestion: firstLine(err),
		}
	}
	defer conn.Close()

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("Jump host %s reachable (%s)", c.Jump, time.Since(start).Round(time.Millisecond)),
	}
}
