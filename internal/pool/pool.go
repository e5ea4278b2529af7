// Package pool runs a fixed set of long-lived workers that poll hosts taken
// from a shared queue.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/poller"
	"github.com/rileyhilliard/ipmicollect/internal/shutdown"
)

// HostPoller polls a single host. *poller.Poller satisfies it.
type HostPoller interface {
	PollHost(ctx context.Context, host string) poller.Result
}

// Registrar tracks workers for shutdown. *shutdown.Controller satisfies it.
type Registrar interface {
	Register(parent context.Context, id string) (context.Context, *shutdown.Handle)
}

// Size returns how many workers to run for the given settings:
// min(workers, hosts), and never less than one.
func Size(workers, hosts int) int {
	n := workers
	if hosts < n {
		n = hosts
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Pool owns the work queue, the results channel and the workers.
type Pool struct {
	poller    HostPoller
	queue     *WorkQueue
	results   *Results
	size      int
	registrar Registrar
	log       logger.Logger

	started atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithRegistrar registers every worker with r.
func WithRegistrar(r Registrar) Option {
	return func(p *Pool) { p.registrar = r }
}

// WithLogger sets the pool logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// New creates a pool sized for hosts hosts and at most workers workers.
// Queue and results are buffered for one full cycle.
func New(hp HostPoller, hosts, workers int, opts ...Option) *Pool {
	p := &Pool{
		poller:  hp,
		queue:   NewWorkQueue(hosts),
		results: NewResults(hosts),
		size:    Size(workers, hosts),
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queue returns the work queue the scheduler fills.
func (p *Pool) Queue() *WorkQueue { return p.queue }

// Results returns the channel the scheduler collects from.
func (p *Pool) Results() *Results { return p.results }

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers. They run until ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrExec, "Worker pool already started", "")
	}

	p.log.Debug("[pool] starting %d workers", p.size)
	for i := 0; i < p.size; i++ {
		id := fmt.Sprintf("worker-%d", i+1)
		wctx := ctx
		var handle *shutdown.Handle
		if p.registrar != nil {
			wctx, handle = p.registrar.Register(ctx, id)
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if handle != nil {
				defer handle.Finish()
			}
			p.work(wctx, id)
		}()
	}
	return nil
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Run starts the workers and blocks until ctx is done and they have all returned.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	p.Wait()
	return nil
}

// work takes hosts until ctx is done, pushing exactly one result per host.
func (p *Pool) work(ctx context.Context, id string) {
	for {
		host, ok := p.queue.Take(ctx)
		if !ok {
			p.log.Debug("[pool] %s stopping", id)
			return
		}

		res := p.poller.PollHost(ctx, host)
		if !p.results.Send(ctx, res) {
			p.log.Debug("[pool] %s dropped result for %s during shutdown", id, host)
			return
		}
	}
}
