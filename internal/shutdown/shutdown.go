// Package shutdown tracks long-lived workers and stops them on SIGINT/SIGTERM.
//
// Workers register a Handle and mark it finished when they return. On the
// first signal every handle is cancelled and the controller waits up to the
// grace period for them to finish. A second signal, or the grace period
// running out, ends the wait early.
package shutdown

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/logger"
)

var (
	// ErrForced is returned when a second signal arrived during graceful shutdown.
	ErrForced = stderrors.New("shutdown forced by second signal")
	// ErrGraceExpired is returned when workers did not finish within the grace period.
	ErrGraceExpired = stderrors.New("shutdown grace period expired")
)

// DefaultGrace is used when the configured grace period is zero.
const DefaultGrace = 5 * time.Second

// Handle represents one registered worker.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Finish marks the worker as returned. Safe to call more than once.
func (h *Handle) Finish() {
	h.once.Do(func() { close(h.done) })
}

// Controller is the registry of worker handles.
type Controller struct {
	mu      sync.Mutex
	handles []*Handle
	grace   time.Duration
	log     logger.Logger
}

// New creates a controller with the given grace period.
func New(grace time.Duration, log logger.Logger) *Controller {
	if grace <= 0 {
		grace = DefaultGrace
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Controller{grace: grace, log: log}
}

// Grace returns the grace period.
func (c *Controller) Grace() time.Duration { return c.grace }

// Register adds a worker. The returned context is cancelled by Shutdown or
// when parent is done; the worker must call Handle.Finish when it returns.
func (c *Controller) Register(parent context.Context, id string) (context.Context, *Handle) {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{id: id, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.handles = append(c.handles, h)
	c.mu.Unlock()

	return ctx, h
}

// Handles returns a snapshot of the registered handles.
func (c *Controller) Handles() []*Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Handle(nil), c.handles...)
}

// Pending returns the IDs of handles that have not finished.
func (c *Controller) Pending() []string {
	var ids []string
	for _, h := range c.Handles() {
		select {
		case <-h.done:
		default:
			ids = append(ids, h.id)
		}
	}
	return ids
}

// Cancel cancels every registered handle without waiting.
func (c *Controller) Cancel() {
	for _, h := range c.Handles() {
		h.cancel()
	}
}

// Shutdown cancels every handle and waits up to the grace period for all of
// them to finish.
func (c *Controller) Shutdown() error {
	c.Cancel()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	select {
	case <-c.allFinished():
		return nil
	case <-timer.C:
		pending := c.Pending()
		c.log.Warn("[shutdown] grace period of %s expired, %d workers still running: %v", c.grace, len(pending), pending)
		return ErrGraceExpired
	}
}

// allFinished returns a channel closed once every handle registered so far
// has finished.
func (c *Controller) allFinished() <-chan struct{} {
	handles := c.Handles()
	out := make(chan struct{})
	go func() {
		for _, h := range handles {
			<-h.done
		}
		close(out)
	}()
	return out
}

// Run calls fn and stops it on the first value from signals.
//
// Without a signal, Run returns when fn does, after shutting down any
// handles fn left behind. With a signal, fn's context is cancelled along
// with every handle, and Run waits for fn and the handles until the grace
// period expires or a second signal arrives.
func (c *Controller) Run(ctx context.Context, signals <-chan os.Signal, fn func(context.Context) error) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- fn(runCtx)
	}()

	select {
	case err := <-runErrCh:
		cancelRun()
		if shutdownErr := c.Shutdown(); err == nil {
			err = shutdownErr
		}
		return err
	case sig := <-signals:
		c.log.Info("[shutdown] %s received, stopping workers (grace %s)", sig, c.grace)
	}

	cancelRun()
	c.Cancel()

	stopped := make(chan error, 1)
	go func() {
		err := <-runErrCh
		<-c.allFinished()
		stopped <- err
	}()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	select {
	case err := <-stopped:
		c.log.Info("[shutdown] all workers stopped")
		if stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case sig := <-signals:
		c.log.Warn("[shutdown] second %s received, exiting without waiting for %v", sig, c.Pending())
		return ErrForced
	case <-timer.C:
		c.log.Warn("[shutdown] grace period of %s expired, still running: %v", c.grace, c.Pending())
		return ErrGraceExpired
	}
}

// NotifySignals subscribes to SIGINT and SIGTERM. The returned stop function
// unsubscribes.
func NotifySignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}
