package cli

import (
	"os"

	"github.com/rileyhilliard/ipmicollect/internal/logger"
	"github.com/rileyhilliard/ipmicollect/internal/pool"
	"github.com/rileyhilliard/ipmicollect/internal/shutdown"
	"github.com/rileyhilliard/ipmicollect/internal/util"
	"github.com/spf13/cobra"
)

// collectCommand is the root command: poll until told to stop.
func collectCommand(cmd *cobra.Command, args []string) error {
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

	c := newCollector(cfg, hosts, collectorOptions{out: os.Stdout, log: log})

	signals, stop := shutdown.NotifySignals()
	defer stop()

	where := "locally"
	if cfg.SSH.Jump != "" {
		where = "via " + cfg.SSH.Jump
	}
	log.Info("[ipmicollect] %s: %d %s, %d %s, every %s, %s",
		formatVersion(version),
		len(hosts), util.Pluralize(len(hosts), "host", "hosts"),
		pool.Size(cfg.Workers, len(hosts)), util.Pluralize(pool.Size(cfg.Workers, len(hosts)), "worker", "workers"),
		cfg.Interval, where)

	return c.run(cmd.Context(), signals)
}
