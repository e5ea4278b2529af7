package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Defaults for the collector.
const (
	DefaultInterval      = 10 * time.Second
	DefaultWorkers       = 10
	DefaultSensorCommand = "ipmi-sensors -u admin -a NONE"
	DefaultPlugin        = "remote_ipmi"
	DefaultShutdownGrace = 5 * time.Second
	DefaultSSHTimeout    = 10 * time.Second
	DefaultLogLevel      = "info"
)

// DefaultSensors is the sensor allow-list used when none is configured.
var DefaultSensors = []string{"CPU1", "CPU2"}

// Config represents the complete .ipmicollect.yaml configuration file.
// It is read once at startup and never changes afterwards.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Interval between cycle starts.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// Workers is the upper bound on concurrent sensor commands.
	Workers int `yaml:"workers" mapstructure:"workers"`

	// Timeout is the per-host deadline. Zero means 3/4 of Interval.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// SensorCommand is run as "<SensorCommand> -h <host>".
	SensorCommand string `yaml:"sensor_command" mapstructure:"sensor_command"`

	// Sensors is the allow-list of normalized sensor names to report.
	Sensors []string `yaml:"sensors" mapstructure:"sensors"`

	// Plugin is the plugin segment of the PUTVAL identifier.
	Plugin string `yaml:"plugin" mapstructure:"plugin"`

	// Hosts to poll when none are given on the command line.
	Hosts []string `yaml:"hosts" mapstructure:"hosts"`

	// ShutdownGrace is how long workers get to stop after a signal.
	ShutdownGrace time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`

	SSH SSHConfig `yaml:"ssh" mapstructure:"ssh"`
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// SSHConfig controls running the sensor command on a jump host.
type SSHConfig struct {
	// Jump is an SSH destination (alias, host, user@host:port).
	// Empty runs the sensor command locally.
	Jump string `yaml:"jump" mapstructure:"jump"`

	// Timeout bounds connecting to the jump host.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// StrictHostKeys verifies the jump host against ~/.ssh/known_hosts.
	StrictHostKeys bool `yaml:"strict_host_keys" mapstructure:"strict_host_keys"`
}

// LogConfig controls diagnostic output. PUTVAL lines are not affected.
type LogConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `yaml:"level" mapstructure:"level"`

	// File additionally writes logs to a size-rotated file.
	File string `yaml:"file" mapstructure:"file"`

	MaxSizeMB  int `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
}

// HostTimeout returns the effective per-host deadline.
func (c *Config) HostTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return c.Interval * 3 / 4
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:       CurrentConfigVersion,
		Interval:      DefaultInterval,
		Workers:       DefaultWorkers,
		SensorCommand: DefaultSensorCommand,
		Sensors:       append([]string(nil), DefaultSensors...),
		Plugin:        DefaultPlugin,
		Hosts:         []string{},
		ShutdownGrace: DefaultShutdownGrace,
		SSH: SSHConfig{
			Timeout:        DefaultSSHTimeout,
			StrictHostKeys: true,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
