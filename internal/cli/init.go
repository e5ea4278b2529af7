package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/ipmicollect/internal/config"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/ui"
	"github.com/rileyhilliard/ipmicollect/internal/util"
	"github.com/rileyhilliard/ipmicollect/pkg/sshutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Command-specific flags
var (
	initForce          bool
	initGlobal         bool
	initNonInteractive bool
	initHostsFlag      []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create " + config.ConfigFileName + " configuration",
	Long: `Write a config file with the hosts, sensors and sensor command to use.

Prompts for each value unless --non-interactive is set, CI is set, or stdin
is not a terminal. Collector flags such as --sensors, --interval and --jump
pre-fill the answers.

Examples:
  ipmicollect init
  ipmicollect init --global
  ipmicollect init --non-interactive --hosts bmc-01,bmc-02 --sensors CPU1,CPU2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write "+filepath.Join("~", config.GlobalConfigDir, config.GlobalConfigFile))
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "don't prompt, use flags and defaults")
	initCmd.Flags().StringSliceVar(&initHostsFlag, "hosts", nil, "hosts to poll (comma-separated)")
	rootCmd.AddCommand(initCmd)
}

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // where to write; defaults to ./.ipmicollect.yaml
	Base           *config.Config
	Overwrite      bool
	NonInteractive bool
	Out            io.Writer
}

func initCommand(cmd *cobra.Command) error {
	// Start from defaults plus whatever the user passed on the command line.
	base, err := config.LoadWithFlags("", cmd.Flags())
	if err != nil {
		return err
	}
	if len(initHostsFlag) > 0 {
		base.Hosts = initHostsFlag
	}

	path := ""
	if initGlobal {
		path = config.GlobalConfigPath()
	}

	return Init(InitOptions{
		Path:           path,
		Base:           base,
		Overwrite:      initForce,
		NonInteractive: initNonInteractive || os.Getenv("CI") != "" || !term.IsTerminal(int(os.Stdin.Fd())),
		Out:            os.Stdout,
	})
}

// Init writes a new config file.
func Init(opts InitOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	path := opts.Path
	if path == "" {
		path = filepath.Join(".", config.ConfigFileName)
	}
	cfg := opts.Base
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", path),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", path)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if !opts.NonInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
		if cfg.SSH.Jump != "" {
			if err := probeJump(cfg, out); err != nil {
				return err
			}
		}
	}

	cfg.Hosts, _ = util.Dedupe(cfg.Hosts)
	if len(cfg.Hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"At least one host is required",
			"Provide --hosts or run interactively")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := config.Write(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, path)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  ipmicollect check  - Poll every host once")
	fmt.Fprintln(out, "  ipmicollect        - Start collecting (run it from the collectd exec plugin)")
	return nil
}

// promptConfig asks for each setting, pre-filled from cfg.
func promptConfig(cfg *config.Config) error {
	hosts := strings.Join(cfg.Hosts, ", ")
	sensors := strings.Join(cfg.Sensors, ", ")
	command := cfg.SensorCommand
	interval := cfg.Interval.String()
	jump := cfg.SSH.Jump

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("BMC hosts").
				Description("Hosts to poll, separated by commas or spaces").
				Placeholder("bmc-01, bmc-02").
				Value(&hosts).
				Validate(func(s string) error {
					list := splitList(s)
					if len(list) == 0 {
						return fmt.Errorf("at least one host is required")
					}
					return config.ValidateHosts(list)
				}),
			huh.NewInput().
				Title("Sensors").
				Description("Sensor names to report, as printed by the sensor tool").
				Value(&sensors).
				Validate(func(s string) error {
					if len(splitList(s)) == 0 {
						return fmt.Errorf("at least one sensor is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Sensor command").
				Description("'-h <host>' is appended for each host").
				Value(&command).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("sensor command is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Interval").
				Description("Time between polls, e.g. 10s").
				Value(&interval).
				Validate(func(s string) error {
					d, err := time.ParseDuration(strings.TrimSpace(s))
					if err != nil {
						return fmt.Errorf("not a duration: %s", s)
					}
					if d < config.MinInterval {
						return fmt.Errorf("interval must be at least %s", config.MinInterval)
					}
					return nil
				}),
			huh.NewInput().
				Title("Jump host (optional)").
				Description("SSH host that runs the sensor command; leave empty to run locally").
				Placeholder("user@bastion").
				Value(&jump),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}

	cfg.Hosts = splitList(hosts)
	cfg.Sensors = splitList(sensors)
	cfg.SensorCommand = strings.TrimSpace(command)
	cfg.Interval, _ = time.ParseDuration(strings.TrimSpace(interval))
	if cfg.Timeout > cfg.Interval {
		cfg.Timeout = 0
	}
	cfg.SSH.Jump = strings.TrimSpace(jump)
	return nil
}

// probeJump checks the jump host is reachable and offers to save anyway.
func probeJump(cfg *config.Config, out io.Writer) error {
	client, err := sshutil.Dial(context.Background(), cfg.SSH.Jump, dialOptions(cfg))
	if err == nil {
		_ = client.Close()
		fmt.Fprintf(out, "%s Connected to %s\n", ui.SymbolSuccess, cfg.SSH.Jump)
		return nil
	}

	fmt.Fprintf(out, "\n%s Connection to '%s' failed: %v\n\n", ui.SymbolFail, cfg.SSH.Jump, err)

	var saveAnyway bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the connection later)").
				Value(&saveAnyway),
		),
	)
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Connection to '%s' failed", cfg.SSH.Jump),
			"Check that the host is reachable: ssh "+cfg.SSH.Jump)
	}
	return nil
}

// splitList splits on commas and whitespace, dropping blanks.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
