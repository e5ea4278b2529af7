package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "ipmicollect [flags] [host...]",
	Short: "Poll BMC sensors over IPMI and feed them to collectd",
	Long: `ipmicollect runs the IPMI sensor tool against every host once per
interval and prints the selected readings as collectd PUTVAL lines.

Run it from the collectd exec plugin:

  <Plugin exec>
    Exec "nobody" "/usr/local/bin/ipmicollect" "--interval" "10s" "bmc-01" "bmc-02"
  </Plugin>

Hosts given as arguments replace the hosts list from the config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.ConfigureColor(noColor, os.Stderr)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return collectCommand(cmd, args)
	},
}

func init() {
	addCollectorFlags(rootCmd)
}

// addCollectorFlags registers the flags listed in config.FlagKeys, plus
// --config and --no-color, as persistent flags on cmd.
func addCollectorFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default: search for "+config.ConfigFileName+")")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")

	f.Duration("interval", config.DefaultInterval, "time between cycle starts")
	f.Int("workers", config.DefaultWorkers, "maximum hosts polled at once")
	f.Duration("timeout", 0, "per-host deadline (default 3/4 of the interval)")
	f.String("sensor-cmd", config.DefaultSensorCommand, "sensor tool invocation; '-h <host>' is appended")
	f.StringSlice("sensors", config.DefaultSensors, "sensor names to report")
	f.String("plugin", config.DefaultPlugin, "plugin segment of the PUTVAL identifier")
	f.Duration("shutdown-grace", config.DefaultShutdownGrace, "how long to wait for workers on shutdown")
	f.String("jump", "", "run the sensor tool on this SSH host instead of locally")
	f.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	f.String("log-file", "", "also write logs to this file, rotated by size")
}

// Execute runs the root command and exits with the right status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := errors.GetExitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

// renderError keeps structured errors as they are and styles the rest.
func renderError(err error) string {
	var ipErr *errors.Error
	if stderrors.As(err, &ipErr) {
		return ipErr.Error()
	}
	return ui.RenderError(err.Error())
}
