package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/rileyhilliard/ipmicollect/internal/sensor"
)

// MinInterval is the shortest accepted cycle interval.
const MinInterval = time.Second

// ValidLogLevels lists accepted log.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig, "No config loaded", "This shouldn't happen - please report this bug!")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but ipmicollect only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade ipmicollect.")
	}

	if cfg.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("interval %s is too short", cfg.Interval),
			fmt.Sprintf("Use at least %s, e.g. 'interval: 10s'.", MinInterval))
	}

	if cfg.Workers < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("workers must be at least 1, got %d", cfg.Workers),
			"Set 'workers' to the number of hosts to poll at once (default 10).")
	}

	if cfg.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("timeout can't be negative, got %s", cfg.Timeout),
			"Leave 'timeout' unset to use 3/4 of the interval.")
	}
	if cfg.Timeout > cfg.Interval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("timeout %s is longer than the %s interval", cfg.Timeout, cfg.Interval),
			"A host can't take longer than a cycle. Lower 'timeout' or raise 'interval'.")
	}

	if strings.TrimSpace(cfg.SensorCommand) == "" {
		return errors.New(errors.ErrConfig,
			"sensor_command is empty",
			fmt.Sprintf("Set it to the IPMI tool invocation, e.g. '%s'.", DefaultSensorCommand))
	}

	if len(sensor.NewSet(cfg.Sensors...)) == 0 {
		return errors.New(errors.ErrConfig,
			"No sensors configured",
			"List the sensor names to report under 'sensors', e.g. [CPU1, CPU2].")
	}

	if err := validatePlugin(cfg.Plugin); err != nil {
		return err
	}

	if cfg.ShutdownGrace < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("shutdown_grace can't be negative, got %s", cfg.ShutdownGrace),
			"Use a duration such as '5s'.")
	}

	if cfg.SSH.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("ssh.timeout can't be negative, got %s", cfg.SSH.Timeout),
			"Use a duration such as '10s'.")
	}

	if !isValidLogLevel(cfg.Log.Level) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log level '%s'", cfg.Log.Level),
			"Use one of: "+strings.Join(ValidLogLevels, ", "))
	}

	return ValidateHosts(cfg.Hosts)
}

// ValidateHosts rejects host names that would break the PUTVAL identifier.
func ValidateHosts(hosts []string) error {
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.ContainsAny(h, "/\" \t") {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' can't be used in a PUTVAL identifier", h),
				"Host names must not contain '/', quotes or whitespace.")
		}
	}
	return nil
}

func validatePlugin(plugin string) error {
	if plugin == "" {
		return errors.New(errors.ErrConfig,
			"plugin is empty",
			fmt.Sprintf("Remove the 'plugin' key to use '%s'.", DefaultPlugin))
	}
	if strings.ContainsAny(plugin, "/\" \t") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("plugin '%s' can't be used in a PUTVAL identifier", plugin),
			"Plugin names must not contain '/', quotes or whitespace.")
	}
	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range ValidLogLevels {
		if level == l {
			return true
		}
	}
	return false
}
