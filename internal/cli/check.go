package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/scheduler"
	"github.com/rileyhilliard/ipmicollect/internal/shutdown"
	"github.com/rileyhilliard/ipmicollect/internal/ui"
	"github.com/spf13/cobra"
)

var checkPutval bool

var checkCmd = &cobra.Command{
	Use:   "check [host...]",
	Short: "Poll every host once and show the readings",
	Long: `Run a single collection cycle and print what each host returned.

Useful when setting up: it shows which sensors matched, which hosts timed
out, and how long each one took. Exits 1 if any host returned nothing.

Examples:
  ipmicollect check
  ipmicollect check bmc-01 bmc-02 --sensors CPU1,FAN1
  ipmicollect check --putval`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColor(noColor, os.Stdout)
		return checkCommand(cmd, args, os.Stdout)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkPutval, "putval", false, "print PUTVAL lines instead of a table")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string, out io.Writer) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closer := setupLogging(cfg)
	defer closer.Close()

	log := logger.Default()
	hosts, err := resolveHosts(args, cfg.Hosts, log)
	if err != nil {
		return err
	}

	opts := collectorOptions{log: log}
	if checkPutval {
		opts.out = out
	}
	c := newCollector(cfg, hosts, opts)

	signals, stop := shutdown.NotifySignals()
	defer stop()

	return runCheck(cmd.Context(), c, signals, out, checkPutval)
}

// runCheck runs one cycle and reports it to out.
func runCheck(ctx context.Context, c *collector, signals <-chan os.Signal, out io.Writer, putval bool) error {
	res, err := c.once(ctx, signals)
	if err != nil {
		return err
	}

	failed := res.Failed()
	if !putval {
		fmt.Fprintln(out, ui.RenderReadingsTable(readingRows(c.hosts, res)))
		fmt.Fprintln(out, ui.RenderSummary(len(c.hosts), len(failed), len(res.All())))
	}
	if len(failed) > 0 {
		return errors.NewExitError(1)
	}
	return nil
}

// readingRows lists readings in configured host order.
func readingRows(hosts []string, res *scheduler.CycleResult) []ui.ReadingRow {
	var rows []ui.ReadingRow
	for _, h := range hosts {
		d := res.Durations[h]
		readings := res.Readings[h]
		if len(readings) == 0 {
			msg := "no readings"
			if err := res.Errors[h]; err != nil {
				msg = errorSummary(err)
			}
			rows = append(rows, ui.ReadingRow{Host: h, Duration: d, Err: msg})
			continue
		}
		for _, r := range readings {
			rows = append(rows, ui.ReadingRow{
				Host:     h,
				Sensor:   r.Sensor,
				Value:    r.ValueString(),
				Valid:    r.Valid,
				Duration: d,
			})
		}
	}
	return rows
}

// errorSummary returns the one-line headline of err.
func errorSummary(err error) string {
	var ipErr *errors.Error
	if stderrors.As(err, &ipErr) {
		return ipErr.Message
	}
	msg := strings.TrimSpace(err.Error())
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		msg = msg[:idx]
	}
	return msg
}
