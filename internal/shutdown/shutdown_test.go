package shutdown

import (
	"context"
	stderrors "errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWorker registers a worker that exits when its context is cancelled.
func startWorker(ctx context.Context, c *Controller, id string) *Handle {
	wctx, h := c.Register(ctx, id)
	go func() {
		defer h.Finish()
		<-wctx.Done()
	}()
	return h
}

// startStuckWorker registers a worker that ignores cancellation until release is closed.
func startStuckWorker(ctx context.Context, c *Controller, id string, release <-chan struct{}) *Handle {
	_, h := c.Register(ctx, id)
	go func() {
		defer h.Finish()
		<-release
	}()
	return h
}

func TestNew_DefaultGrace(t *testing.T) {
	assert.Equal(t, DefaultGrace, New(0, nil).Grace())
	assert.Equal(t, time.Second, New(time.Second, nil).Grace())
}

func TestShutdown_CancelsAndWaits(t *testing.T) {
	c := New(time.Second, logger.NewBufferLogger())
	handles := []*Handle{
		startWorker(context.Background(), c, "worker-1"),
		startWorker(context.Background(), c, "worker-2"),
	}

	require.NoError(t, c.Shutdown())

	for _, h := range handles {
		select {
		case <-h.done:
		default:
			t.Fatalf("%s not finished", h.id)
		}
	}
	assert.Empty(t, c.Pending())
}

func TestShutdown_GraceExpires(t *testing.T) {
	log := logger.NewBufferLogger()
	c := New(30*time.Millisecond, log)
	release := make(chan struct{})
	defer close(release)
	startWorker(context.Background(), c, "worker-1")
	startStuckWorker(context.Background(), c, "worker-2", release)

	err := c.Shutdown()

	assert.ErrorIs(t, err, ErrGraceExpired)
	assert.Equal(t, []string{"worker-2"}, c.Pending())
	assert.True(t, log.HasLevel("warn"))
}

func TestHandle_FinishIdempotent(t *testing.T) {
	c := New(time.Second, nil)
	_, h := c.Register(context.Background(), "w")

	h.Finish()
	h.Finish()

	assert.Equal(t, "w", h.id)
	assert.Empty(t, c.Pending())
}

func TestRun_ReturnsWhenFnReturns(t *testing.T) {
	c := New(time.Second, nil)
	signals := make(chan os.Signal, 2)

	err := c.Run(context.Background(), signals, func(ctx context.Context) error {
		startWorker(ctx, c, "worker-1")
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, c.Pending())
}

func TestRun_PropagatesFnError(t *testing.T) {
	c := New(time.Second, nil)
	boom := stderrors.New("stdout closed")

	err := c.Run(context.Background(), make(chan os.Signal), func(context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestRun_GracefulOnSignal(t *testing.T) {
	c := New(time.Second, logger.NewBufferLogger())
	signals := make(chan os.Signal, 2)
	started := make(chan struct{})

	go func() {
		<-started
		signals <- syscall.SIGTERM
	}()

	err := c.Run(context.Background(), signals, func(ctx context.Context) error {
		for i := 0; i < 3; i++ {
			startWorker(ctx, c, "worker")
		}
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Len(t, c.Handles(), 3)
	assert.Empty(t, c.Pending())
}

func TestRun_SecondSignalForces(t *testing.T) {
	c := New(time.Minute, logger.NewBufferLogger())
	signals := make(chan os.Signal, 2)
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	go func() {
		<-started
		signals <- os.Interrupt
		time.Sleep(20 * time.Millisecond)
		signals <- os.Interrupt
	}()

	start := time.Now()
	err := c.Run(context.Background(), signals, func(ctx context.Context) error {
		startStuckWorker(ctx, c, "stuck", release)
		close(started)
		<-ctx.Done()
		return nil
	})

	assert.ErrorIs(t, err, ErrForced)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"stuck"}, c.Pending())
}

func TestRun_GraceExpiresAfterSignal(t *testing.T) {
	c := New(30*time.Millisecond, logger.NewBufferLogger())
	signals := make(chan os.Signal, 2)
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})

	go func() {
		<-started
		signals <- syscall.SIGTERM
	}()

	err := c.Run(context.Background(), signals, func(ctx context.Context) error {
		startStuckWorker(ctx, c, "stuck", release)
		close(started)
		<-ctx.Done()
		return nil
	})

	assert.ErrorIs(t, err, ErrGraceExpired)
}
