package exec

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/pkg/sshutil"
)

// remoteConn is the part of an SSH client the runner needs.
type remoteConn interface {
	ExecContext(ctx context.Context, cmd string) ([]byte, int, error)
	Alive(ctx context.Context) bool
	Close() error
}

// dialFunc opens a connection to the jump host. It must return once ctx is done.
type dialFunc func(ctx context.Context, host string, opts sshutil.DialOptions) (remoteConn, error)

func dialSSH(ctx context.Context, host string, opts sshutil.DialOptions) (remoteConn, error) {
	c, err := sshutil.Dial(ctx, host, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// dialAttempt is one in-flight dial shared by every worker that needs a
// connection while it runs. conn and err are set before done is closed.
type dialAttempt struct {
	done   chan struct{}
	cancel context.CancelFunc
	conn   remoteConn
	err    error
}

// SSHRunner runs the sensor command on a jump host that can reach the BMCs.
// One connection is shared by all workers; each run opens its own session.
// A dead connection is replaced on the next run.
type SSHRunner struct {
	Command string
	Jump    string
	Options sshutil.DialOptions

	mu      sync.Mutex
	conn    remoteConn
	dialing *dialAttempt
	dial    dialFunc
}

// NewSSHRunner creates a runner that executes on the given jump host.
func NewSSHRunner(command, jump string, opts sshutil.DialOptions) *SSHRunner {
	if opts.Timeout <= 0 {
		opts.Timeout = sshutil.DefaultTimeout
	}
	return &SSHRunner{
		Command: command,
		Jump:    jump,
		Options: opts,
		dial:    dialSSH,
	}
}

// Run executes "<command> -h <host>" on the jump host. Waiting for the
// shared connection counts against ctx like the command itself.
func (r *SSHRunner) Run(ctx context.Context, host string) (Result, error) {
	conn, err := r.get(ctx)
	if err != nil {
		return Result{ExitCode: -1}, err
	}

	out, code, err := conn.ExecContext(ctx, BuildCommand(r.Command, host))
	if err != nil {
		if ctx.Err() == nil && errors.IsCode(err, errors.ErrSSH) {
			r.drop(conn)
		}
		return Result{Output: out, ExitCode: code}, err
	}
	return Result{Output: out, ExitCode: code}, nil
}

// Close closes the shared connection and abandons any dial in flight.
func (r *SSHRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dialing != nil {
		r.dialing.cancel()
	}
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// get returns a live shared connection. Concurrent callers share one dial;
// each gives up when its own ctx is done, leaving the dial to finish for
// the others.
func (r *SSHRunner) get(ctx context.Context) (remoteConn, error) {
	for {
		r.mu.Lock()
		conn, attempt := r.conn, r.dialing
		if conn == nil && attempt == nil {
			attempt = r.startDial()
		}
		r.mu.Unlock()

		if conn != nil {
			if conn.Alive(ctx) {
				return conn, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r.drop(conn)
			continue
		}

		select {
		case <-attempt.done:
			if attempt.err != nil {
				return nil, attempt.err
			}
			return attempt.conn, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// startDial launches a dial bounded by the SSH timeout. r.mu must be held.
func (r *SSHRunner) startDial() *dialAttempt {
	ctx, cancel := context.WithTimeout(context.Background(), r.dialTimeout())
	a := &dialAttempt{done: make(chan struct{}), cancel: cancel}
	r.dialing = a

	go func() {
		defer cancel()
		conn, err := r.dial(ctx, r.Jump, r.Options)

		r.mu.Lock()
		r.dialing = nil
		if err == nil && ctx.Err() != nil {
			// Close ran while the dial was finishing.
			_ = conn.Close()
			conn = nil
			err = errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
				"Connection to the jump host was abandoned", "")
		}
		if err == nil {
			r.conn = conn
		}
		r.mu.Unlock()

		a.conn, a.err = conn, err
		close(a.done)
	}()
	return a
}

func (r *SSHRunner) dialTimeout() time.Duration {
	if r.Options.Timeout > 0 {
		return r.Options.Timeout
	}
	return sshutil.DefaultTimeout
}

// drop discards conn if it is still the shared connection.
func (r *SSHRunner) drop(conn remoteConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == conn {
		_ = r.conn.Close()
		r.conn = nil
	}
}
