package poller

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/exec"
	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner returns canned output per host, or blocks until ctx is done.
type fakeRunner struct {
	outputs map[string]exec.Result
	errs    map[string]error
	block   bool
}

func (f *fakeRunner) Run(ctx context.Context, host string) (exec.Result, error) {
	if f.block {
		<-ctx.Done()
		return exec.Result{ExitCode: -1}, ctx.Err()
	}
	if err, ok := f.errs[host]; ok {
		return exec.Result{ExitCode: -1}, err
	}
	return f.outputs[host], nil
}

func (f *fakeRunner) Close() error { return nil }

const boardOutput = `ID: Name: Reading: Units (Thresholds): Event
4: CPU1: 41.00 C (NA/85.00): [OK]
5: CPU2: NA C (NA/85.00): [Unknown]
71: FAN1: 4500.00 RPM (600.00/NA): [OK]
`

func newTestPoller(r exec.Runner, timeout time.Duration) (*Poller, *logger.BufferLogger) {
	log := logger.NewBufferLogger()
	p := New(r, sensor.NewParser(sensor.NewSet("CPU1", "CPU2")), timeout,
		WithLogger(log), WithCommand("ipmi-sensors"))
	return p, log
}

func TestPoll_ParsesReadings(t *testing.T) {
	p, _ := newTestPoller(&fakeRunner{outputs: map[string]exec.Result{
		"node01": {Output: []byte(boardOutput)},
	}}, time.Second)

	readings := p.Poll(context.Background(), "node01")

	require.Len(t, readings, 2)
	assert.Equal(t, "CPU1", readings[0].Sensor)
	assert.Equal(t, "41.00", readings[0].ValueString())
	assert.Equal(t, "CPU2", readings[1].Sensor)
	assert.Equal(t, sensor.Unavailable, readings[1].ValueString())
	assert.Equal(t, "node01", readings[0].Host)
}

func TestPoll_NonZeroExitStillParsed(t *testing.T) {
	p, _ := newTestPoller(&fakeRunner{outputs: map[string]exec.Result{
		"node01": {Output: []byte(boardOutput), ExitCode: 1},
	}}, time.Second)

	res := p.PollHost(context.Background(), "node01")

	assert.True(t, res.OK())
	assert.NoError(t, res.Err)
}

func TestPoll_TimeoutYieldsEmpty(t *testing.T) {
	p, log := newTestPoller(&fakeRunner{block: true}, 20*time.Millisecond)

	start := time.Now()
	res := p.PollHost(context.Background(), "slow-bmc")

	assert.Empty(t, res.Readings)
	assert.NotNil(t, res.Readings)
	require.Error(t, res.Err)
	assert.True(t, errors.IsCode(res.Err, errors.ErrExec))
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, log.HasLevel("warn"))
}

func TestPoll_RunErrorYieldsEmpty(t *testing.T) {
	p, log := newTestPoller(&fakeRunner{errs: map[string]error{
		"node02": stderrors.New("fork/exec /bin/sh: no such file or directory"),
	}}, time.Second)

	res := p.PollHost(context.Background(), "node02")

	assert.Empty(t, res.Readings)
	require.Error(t, res.Err)
	assert.True(t, log.HasLevel("warn"))
}

func TestPoll_EmptyOutput(t *testing.T) {
	p, _ := newTestPoller(&fakeRunner{outputs: map[string]exec.Result{
		"node03": {Output: []byte("ipmi-sensors: connection timeout\n"), ExitCode: 1},
	}}, time.Second)

	res := p.PollHost(context.Background(), "node03")

	assert.Empty(t, res.Readings)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "connection timeout")
}

func TestPoll_MissingToolLoggedOnce(t *testing.T) {
	p, log := newTestPoller(&fakeRunner{outputs: map[string]exec.Result{
		"a": {Output: []byte("/bin/sh: 1: ipmi-sensors: not found\n"), ExitCode: 127},
		"b": {Output: []byte("/bin/sh: 1: ipmi-sensors: not found\n"), ExitCode: 127},
	}}, time.Second)

	ra := p.PollHost(context.Background(), "a")
	rb := p.PollHost(context.Background(), "b")

	assert.Error(t, ra.Err)
	assert.Error(t, rb.Err)
	errorsLogged := 0
	for _, m := range log.Snapshot() {
		if m.Level == "error" {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
}

func TestPoll_ParentCancelIsNotAHostFailure(t *testing.T) {
	p, log := newTestPoller(&fakeRunner{block: true}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.PollHost(ctx, "node01")

	assert.Empty(t, res.Readings)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, log.HasLevel("warn"))
}

func TestPoll_NoTimeout(t *testing.T) {
	p, _ := newTestPoller(&fakeRunner{outputs: map[string]exec.Result{
		"node01": {Output: []byte(boardOutput)},
	}}, 0)

	assert.Len(t, p.Poll(context.Background(), "node01"), 2)
	assert.Equal(t, time.Duration(0), p.Timeout())
}
