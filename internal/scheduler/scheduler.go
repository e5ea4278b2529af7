// Package scheduler drives the fill, collect, emit, sleep cycle.
//
// Each cycle every configured host is queued once, the scheduler waits for
// one result per host, writes the readings out, and sleeps for what is
// left of the interval. A cycle that overruns the interval is followed
// immediately by the next one.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/pool"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
)

// State is the scheduler's position in the cycle.
type State int

const (
	StateFilling State = iota
	StateCollecting
	StateEmitting
	StateSleeping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateCollecting:
		return "collecting"
	case StateEmitting:
		return "emitting"
	case StateSleeping:
		return "sleeping"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sink receives each host's readings during the emit phase.
// *output.Emitter satisfies it.
type Sink interface {
	Emit(readings []sensor.Reading) error
}

// CycleResult holds what one cycle collected.
type CycleResult struct {
	// Order lists hosts in the order their results arrived.
	Order []string
	// Readings maps each host to its readings; empty for failed hosts.
	Readings map[string][]sensor.Reading
	// Errors holds the failure cause for hosts that returned nothing.
	Errors map[string]error
	// Durations holds how long each host's poll took.
	Durations map[string]time.Duration
	Start     time.Time
	Elapsed   time.Duration
}

func newCycleResult(start time.Time, hosts int) *CycleResult {
	return &CycleResult{
		Order:     make([]string, 0, hosts),
		Readings:  make(map[string][]sensor.Reading, hosts),
		Errors:    make(map[string]error),
		Durations: make(map[string]time.Duration, hosts),
		Start:     start,
	}
}

// Len returns the number of hosts with a result.
func (c *CycleResult) Len() int {
	return len(c.Order)
}

// Failed returns hosts that produced no readings, in collection order.
func (c *CycleResult) Failed() []string {
	var failed []string
	for _, h := range c.Order {
		if len(c.Readings[h]) == 0 {
			failed = append(failed, h)
		}
	}
	return failed
}

// All returns every reading in collection order.
func (c *CycleResult) All() []sensor.Reading {
	var all []sensor.Reading
	for _, h := range c.Order {
		all = append(all, c.Readings[h]...)
	}
	return all
}

// Scheduler runs collection cycles over a fixed host list.
type Scheduler struct {
	hosts    []string
	hostSet  map[string]struct{}
	interval time.Duration
	queue    *pool.WorkQueue
	results  *pool.Results
	sink     Sink
	log      logger.Logger

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) bool
	onState func(State)

	mu     sync.Mutex
	state  State
	cycles int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithSink sets where readings are emitted. Without a sink, cycles only collect.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleeper replaces the inter-cycle sleep. The function returns false
// when ctx ended the sleep early.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

// WithStateHook calls fn on every state change.
func WithStateHook(fn func(State)) Option {
	return func(s *Scheduler) { s.onState = fn }
}

// New creates a scheduler for hosts. The hosts must already be deduplicated.
func New(hosts []string, interval time.Duration, queue *pool.WorkQueue, results *pool.Results, opts ...Option) *Scheduler {
	s := &Scheduler{
		hosts:    hosts,
		hostSet:  make(map[string]struct{}, len(hosts)),
		interval: interval,
		queue:    queue,
		results:  results,
		log:      logger.Noop(),
		now:      time.Now,
		sleep:    sleepWithContext,
	}
	for _, h := range hosts {
		s.hostSet[h] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cycles returns how many cycles have completed.
func (s *Scheduler) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	if s.onState != nil {
		s.onState(st)
	}
}

// Run repeats cycles until ctx is done. Cancellation discards the cycle in
// progress and returns nil; a failed emit returns the error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("[scheduler] polling %d hosts every %s", len(s.hosts), s.interval)

	for {
		res, err := s.RunOnce(ctx)
		if err != nil {
			s.setState(StateTerminated)
			if ctx.Err() != nil {
				unclaimed, buffered := s.queue.Len(), s.results.Drain()
				s.log.Debug("[scheduler] stopped, partial cycle discarded (%d hosts unclaimed, %d results buffered)", unclaimed, buffered)
				return nil
			}
			return err
		}

		s.setState(StateSleeping)
		wait := s.interval - s.now().Sub(res.Start)
		if wait <= 0 {
			s.log.Warn("[scheduler] cycle took %s, longer than the %s interval", res.Elapsed.Round(time.Millisecond), s.interval)
			if ctx.Err() != nil {
				s.setState(StateTerminated)
				return nil
			}
			continue
		}
		if !s.sleep(ctx, wait) {
			s.setState(StateTerminated)
			return nil
		}
	}
}

// RunOnce fills the queue, collects one result per host and emits the
// readings. It returns ctx.Err() if cancelled before the cycle completes.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleResult, error) {
	s.setState(StateFilling)
	res := newCycleResult(s.now(), len(s.hosts))
	for _, h := range s.hosts {
		if err := s.queue.Put(ctx, h); err != nil {
			return nil, err
		}
	}

	s.setState(StateCollecting)
	if err := s.collect(ctx, res); err != nil {
		return nil, err
	}
	res.Elapsed = s.now().Sub(res.Start)

	s.setState(StateEmitting)
	if s.sink != nil {
		for _, h := range res.Order {
			if err := s.sink.Emit(res.Readings[h]); err != nil {
				return nil, err
			}
		}
	}

	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()

	if failed := res.Failed(); len(failed) > 0 {
		s.log.Info("[scheduler] cycle done in %s, %d/%d hosts without readings", res.Elapsed.Round(time.Millisecond), len(failed), len(s.hosts))
	} else {
		s.log.Debug("[scheduler] cycle done in %s", res.Elapsed.Round(time.Millisecond))
	}
	return res, nil
}

// collect receives until every configured host has reported once.
func (s *Scheduler) collect(ctx context.Context, res *CycleResult) error {
	for res.Len() < len(s.hosts) {
		r, ok := s.results.Recv(ctx)
		if !ok {
			return ctx.Err()
		}
		if _, known := s.hostSet[r.Host]; !known {
			s.log.Debug("[scheduler] ignoring result for unknown host %q", r.Host)
			continue
		}
		if _, seen := res.Readings[r.Host]; seen {
			s.log.Debug("[scheduler] ignoring repeated result for %s", r.Host)
			continue
		}

		readings := r.Readings
		if readings == nil {
			readings = []sensor.Reading{}
		}
		res.Order = append(res.Order, r.Host)
		res.Readings[r.Host] = readings
		res.Durations[r.Host] = r.Duration
		if r.Err != nil {
			res.Errors[r.Host] = r.Err
		}
	}
	// A cycle completed as shutdown began is still discarded.
	return ctx.Err()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
