package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/exec"
	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/output"
	"github.com/rileyhilliard/ipmicollect/internal/poller"
	"github.com/rileyhilliard/ipmicollect/internal/pool"
	"github.com/rileyhilliard/ipmicollect/internal/scheduler"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
	"github.com/rileyhilliard/ipmicollect/internal/shutdown"
	"github.com/rileyhilliard/ipmicollect/internal/util"
	"github.com/rileyhilliard/ipmicollect/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Exit statuses for an interrupted run.
const (
	exitInterrupted  = 130
	exitGraceExpired = 1
)

// collector wires the poller, worker pool, scheduler and shutdown
// controller for one set of hosts.
type collector struct {
	cfg     *config.Config
	hosts   []string
	runner  exec.Runner
	pool    *pool.Pool
	sched   *scheduler.Scheduler
	ctrl    *shutdown.Controller
	emitter *output.Emitter
	log     logger.Logger
}

type collectorOptions struct {
	runner exec.Runner // built from cfg when nil
	out    io.Writer   // PUTVAL destination; nil disables emitting
	log    logger.Logger
}

func newCollector(cfg *config.Config, hosts []string, opts collectorOptions) *collector {
	log := opts.log
	if log == nil {
		log = logger.Noop()
	}
	runner := opts.runner
	if runner == nil {
		runner = newRunner(cfg)
	}

	parser := sensor.NewParser(sensor.NewSet(cfg.Sensors...))
	p := poller.New(runner, parser, cfg.HostTimeout(),
		poller.WithLogger(log),
		poller.WithCommand(cfg.SensorCommand))

	ctrl := shutdown.New(cfg.ShutdownGrace, log)
	wp := pool.New(p, len(hosts), cfg.Workers,
		pool.WithRegistrar(ctrl),
		pool.WithLogger(log))

	c := &collector{
		cfg:    cfg,
		hosts:  hosts,
		runner: runner,
		pool:   wp,
		ctrl:   ctrl,
		log:    log,
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithStateHook(func(st scheduler.State) {
			log.Debug("[scheduler] %s", st)
		}),
	}
	if opts.out != nil {
		c.emitter = output.NewEmitter(opts.out, cfg.Plugin, cfg.Interval)
		schedOpts = append(schedOpts, scheduler.WithSink(c.emitter))
	}
	c.sched = scheduler.New(hosts, cfg.Interval, wp.Queue(), wp.Results(), schedOpts...)
	return c
}

// newRunner runs the sensor tool locally, or on the jump host when one is set.
func newRunner(cfg *config.Config) exec.Runner {
	if cfg.SSH.Jump != "" {
		return exec.NewSSHRunner(cfg.SensorCommand, cfg.SSH.Jump, dialOptions(cfg))
	}
	return exec.NewLocalRunner(cfg.SensorCommand)
}

func dialOptions(cfg *config.Config) sshutil.DialOptions {
	return sshutil.DialOptions{
		Timeout:        cfg.SSH.Timeout,
		StrictHostKeys: cfg.SSH.StrictHostKeys,
	}
}

// run polls until ctx is done or a signal arrives.
func (c *collector) run(ctx context.Context, signals <-chan os.Signal) error {
	defer c.close()

	err := c.ctrl.Run(ctx, signals, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return c.pool.Run(gctx) })
		g.Go(func() error { return c.sched.Run(gctx) })
		return g.Wait()
	})
	c.logTotals()
	return exitStatus(err)
}

// logTotals reports how much was collected before the run ended.
func (c *collector) logTotals() {
	lines := 0
	if c.emitter != nil {
		lines = c.emitter.Lines()
	}
	c.log.Info("[ipmicollect] stopped after %d %s, %d PUTVAL %s",
		c.sched.Cycles(), util.Pluralize(c.sched.Cycles(), "cycle", "cycles"),
		lines, util.Pluralize(lines, "line", "lines"))
}

// once runs a single cycle. An interrupted cycle returns an ExitError.
func (c *collector) once(ctx context.Context, signals <-chan os.Signal) (*scheduler.CycleResult, error) {
	defer c.close()

	done := make(chan *scheduler.CycleResult, 1)
	err := c.ctrl.Run(ctx, signals, func(ctx context.Context) error {
		if err := c.pool.Start(ctx); err != nil {
			return err
		}
		res, err := c.sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		done <- res
		return nil
	})
	if err := exitStatus(err); err != nil {
		return nil, err
	}

	select {
	case res := <-done:
		return res, nil
	default:
		return nil, errors.NewExitError(exitInterrupted)
	}
}

func (c *collector) close() {
	if err := c.runner.Close(); err != nil {
		c.log.Debug("[ipmicollect] closing runner: %v", err)
	}
}

// exitStatus maps shutdown outcomes to process exit codes.
func exitStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, shutdown.ErrForced):
		return errors.NewExitError(exitInterrupted)
	case stderrors.Is(err, shutdown.ErrGraceExpired):
		return errors.NewExitError(exitGraceExpired)
	case stderrors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// loadConfig finds, loads and validates the config with cmd's flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := config.Find(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithFlags(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) io.Closer {
	return logger.Setup(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}

// resolveHosts picks the hosts to poll: arguments win over the config.
// Repeats are dropped with a warning so each host is polled once per cycle.
func resolveHosts(args, configured []string, log logger.Logger) ([]string, error) {
	src := configured
	if len(args) > 0 {
		src = args
	}

	hosts, repeated := util.Dedupe(src)
	if len(repeated) > 0 {
		log.Warn("[ipmicollect] ignoring repeated %s: %s",
			util.Pluralize(len(repeated), "host", "hosts"), strings.Join(repeated, ", "))
	}
	if len(hosts) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No hosts to poll",
			"Pass hosts as arguments or list them under 'hosts' in "+config.ConfigFileName)
	}
	if err := config.ValidateHosts(hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}
