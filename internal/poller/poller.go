// Package poller queries one host for sensor readings.
//
// A poll never fails from the caller's point of view: timeouts, start
// failures, missing tools and empty output all produce an empty reading
// set, and the cause is kept in Result.Err for logging.
package poller

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/exec"
	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
)

// Result is the outcome of polling one host.
type Result struct {
	Host     string
	Readings []sensor.Reading
	Err      error
	Duration time.Duration
}

// OK reports whether the host produced at least one reading.
func (r Result) OK() bool {
	return len(r.Readings) > 0
}

// Poller runs the sensor command for a host and parses its output.
type Poller struct {
	runner  exec.Runner
	parser  *sensor.Parser
	command string
	timeout time.Duration
	log     logger.Logger

	missingOnce sync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger used for per-host failures.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// WithCommand sets the command name reported when the tool is missing.
func WithCommand(command string) Option {
	return func(p *Poller) { p.command = command }
}

// New creates a Poller. A timeout of zero or less disables the per-host deadline.
func New(runner exec.Runner, parser *sensor.Parser, timeout time.Duration, opts ...Option) *Poller {
	p := &Poller{
		runner:  runner,
		parser:  parser,
		timeout: timeout,
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Timeout returns the per-host deadline.
func (p *Poller) Timeout() time.Duration {
	return p.timeout
}

// Poll returns the readings for host, or an empty slice when it could not be read.
func (p *Poller) Poll(ctx context.Context, host string) []sensor.Reading {
	return p.PollHost(ctx, host).Readings
}

// PollHost polls host and keeps the failure detail alongside the readings.
func (p *Poller) PollHost(ctx context.Context, host string) Result {
	start := time.Now()
	res := Result{Host: host, Readings: []sensor.Reading{}}

	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.runner.Run(runCtx, host)
	res.Duration = time.Since(start)

	switch {
	case ctx.Err() != nil:
		// Shutdown, not a host failure.
		res.Err = ctx.Err()
		p.log.Debug("[poller] %s: cancelled after %s", host, res.Duration.Round(time.Millisecond))
		return res
	case err != nil && stderrors.Is(err, context.DeadlineExceeded):
		res.Err = errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Sensor command for %s timed out after %s", host, p.timeout),
			"The BMC may be unreachable. Raise timeout if it is just slow.")
		p.log.Warn("[poller] %s: timed out after %s", host, p.timeout)
		return res
	case err != nil:
		res.Err = err
		p.log.Warn("[poller] %s: %v", host, err)
		return res
	}

	if missing := exec.CheckResult(p.command, out); missing != nil {
		res.Err = missing
		p.missingOnce.Do(func() {
			p.log.Error("[poller] %v", missing)
		})
		return res
	}

	res.Readings = p.parser.Parse(host, string(out.Output))
	if len(res.Readings) == 0 {
		res.Err = noReadingsError(host, out)
		p.log.Warn("[poller] %s: no matching sensors (exit %d)", host, out.ExitCode)
		return res
	}

	p.log.Debug("[poller] %s: %d readings in %s", host, len(res.Readings), res.Duration.Round(time.Millisecond))
	return res
}

func noReadingsError(host string, out exec.Result) error {
	detail := strings.TrimSpace(string(out.Output))
	if idx := strings.IndexByte(detail, '\n'); idx != -1 {
		detail = detail[:idx]
	}
	if detail == "" {
		detail = "no output"
	}
	return errors.New(errors.ErrExec,
		fmt.Sprintf("No configured sensors in output for %s (exit %d): %s", host, out.ExitCode, detail),
		"Run the sensor command by hand against this host and compare names with the sensors list.")
}
