package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/doctor"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/ui"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [host...]",
	Short: "Diagnose config, jump host and sensor tool problems",
	Long: `Run diagnostic checks without polling any BMC.

Checks:
  - Config file location and validity
  - Host list
  - SSH connectivity to the jump host (when ssh.jump is set)
  - The sensor tool is installed where it will run

Exits 1 if any check fails.

Examples:
  ipmicollect doctor
  ipmicollect doctor --jump bastion`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColor(noColor, os.Stdout)
		checks := doctorChecks(cmd, args)
		return runDoctor(cmd, checks, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorChecks builds the checks for the current config. A config that
// fails to load still yields a report, checked against the defaults.
func doctorChecks(cmd *cobra.Command, args []string) []doctor.Check {
	var cfg *config.Config
	path, err := config.Find(cfgFile)
	if err == nil {
		cfg, err = config.LoadWithFlags(path, cmd.Flags())
	}
	loadErr := err
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	hosts := cfg.Hosts
	if len(args) > 0 {
		hosts = args
	}

	checks := []doctor.Check{
		&doctor.ConfigFileCheck{ConfigPath: cfgFile},
		&doctor.ConfigValidCheck{Cfg: cfg, LoadErr: loadErr},
		&doctor.HostsCheck{Hosts: hosts},
	}
	if cfg.SSH.Jump != "" {
		checks = append(checks, &doctor.JumpHostCheck{Jump: cfg.SSH.Jump, Options: dialOptions(cfg)})
	}
	checks = append(checks, &doctor.SensorToolCheck{
		Command: cfg.SensorCommand,
		Jump:    cfg.SSH.Jump,
		Options: dialOptions(cfg),
	})
	return checks
}

func runDoctor(cmd *cobra.Command, checks []doctor.Check, out io.Writer) error {
	results := doctor.RunAll(cmd.Context(), checks)

	rows := make([]ui.CheckRow, len(results))
	for i, r := range results {
		rows[i] = ui.CheckRow{
			Status:     r.Status.String(),
			Category:   r.Category,
			Message:    r.Message,
			Suggestion: r.Suggestion,
		}
	}
	fmt.Fprint(out, ui.RenderCheckList(rows))
	fmt.Fprintln(out, doctor.Summary(results))

	if doctor.HasFailures(results) {
		return errors.NewExitError(1)
	}
	return nil
}
