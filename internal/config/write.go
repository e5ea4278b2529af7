package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileHeader is written above generated config files.
const fileHeader = `# ipmicollect configuration
# Durations accept Go syntax (10s, 1m30s) or plain seconds.
# Every key can be overridden with IPMICOLLECT_<KEY>, e.g. IPMICOLLECT_SSH_JUMP.

`

// fileConfig mirrors Config with durations as strings, which is how
// people write them by hand.
type fileConfig struct {
	Version       int           `yaml:"version"`
	Interval      string        `yaml:"interval"`
	Workers       int           `yaml:"workers"`
	Timeout       string        `yaml:"timeout,omitempty"`
	SensorCommand string        `yaml:"sensor_command"`
	Sensors       []string      `yaml:"sensors"`
	Plugin        string        `yaml:"plugin"`
	Hosts         []string      `yaml:"hosts"`
	ShutdownGrace string        `yaml:"shutdown_grace"`
	SSH           *fileSSH      `yaml:"ssh,omitempty"`
	Log           fileLogConfig `yaml:"log"`
}

type fileSSH struct {
	Jump           string `yaml:"jump"`
	Timeout        string `yaml:"timeout"`
	StrictHostKeys bool   `yaml:"strict_host_keys"`
}

type fileLogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// Marshal renders cfg as commented YAML.
func Marshal(cfg *Config) ([]byte, error) {
	fc := fileConfig{
		Version:       cfg.Version,
		Interval:      cfg.Interval.String(),
		Workers:       cfg.Workers,
		SensorCommand: cfg.SensorCommand,
		Sensors:       cfg.Sensors,
		Plugin:        cfg.Plugin,
		Hosts:         cfg.Hosts,
		ShutdownGrace: cfg.ShutdownGrace.String(),
		Log: fileLogConfig{
			Level: cfg.Log.Level,
			File:  cfg.Log.File,
		},
	}
	if cfg.Log.File != "" {
		fc.Log.MaxSizeMB = cfg.Log.MaxSizeMB
		fc.Log.MaxBackups = cfg.Log.MaxBackups
	}
	if cfg.Timeout > 0 {
		fc.Timeout = cfg.Timeout.String()
	}
	if cfg.SSH.Jump != "" {
		fc.SSH = &fileSSH{
			Jump:           cfg.SSH.Jump,
			Timeout:        cfg.SSH.Timeout.String(),
			StrictHostKeys: cfg.SSH.StrictHostKeys,
		}
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fc); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode config", "This shouldn't happen - please report this bug!")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode config", "This shouldn't happen - please report this bug!")
	}
	return buf.Bytes(), nil
}

// Write saves cfg to path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create config directory",
			"Check permissions on "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path,
			"Check file permissions")
	}
	return nil
}
