package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/ipmicollect/internal/config"
)

// ConfigFileCheck reports which config file will be used.
type ConfigFileCheck struct {
	ConfigPath string // explicit --config value, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return "CONFIG" }

func (c *ConfigFileCheck) Run(ctx context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    "Can't locate config file",
			Suggestion: firstLine(err),
		}
	}
	if path == "" {
		return CheckResult{
			Status:     StatusWarn,
			Message:    "No config file found, using defaults and environment",
			Suggestion: "Run 'ipmicollect init' to create " + config.ConfigFileName,
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: "Config file: " + path,
	}
}

// ConfigValidCheck reports whether the loaded config passes validation.
// Cfg and LoadErr are the outcome of loading it.
type ConfigValidCheck struct {
	Cfg     *config.Config
	LoadErr error
}

func (c *ConfigValidCheck) Name() string     { return "config_valid" }
func (c *ConfigValidCheck) Category() string { return "CONFIG" }

func (c *ConfigValidCheck) Run(ctx context.Context) CheckResult {
	if c.LoadErr != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    "Config failed to load",
			Suggestion: firstLine(c.LoadErr),
		}
	}
	if err := config.Validate(c.Cfg); err != nil {
		return CheckResult{
			Status:     StatusFail,
			Message:    "Config is invalid",
			Suggestion: firstLine(err),
		}
	}
	return CheckResult{
		Status: StatusPass,
		Message: fmt.Sprintf("Config valid: every %s, %d workers, sensors %v",
			c.Cfg.Interval, c.Cfg.Workers, c.Cfg.Sensors),
	}
}
