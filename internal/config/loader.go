package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/rileyhilliard/ipmicollect/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".ipmicollect.yaml"
	// GlobalConfigDir is the directory for per-user config.
	GlobalConfigDir = ".config/ipmicollect"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// SystemConfigPath is checked last, for collectd deployments.
	SystemConfigPath = "/etc/ipmicollect/config.yaml"
	// EnvPrefix prefixes environment overrides: IPMICOLLECT_INTERVAL, IPMICOLLECT_SSH_JUMP, ...
	EnvPrefix = "IPMICOLLECT"
)

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"interval":       "interval",
	"workers":        "workers",
	"timeout":        "timeout",
	"sensor-cmd":     "sensor_command",
	"sensors":        "sensors",
	"plugin":         "plugin",
	"shutdown-grace": "shutdown_grace",
	"jump":           "ssh.jump",
	"log-level":      "log.level",
	"log-file":       "log.file",
}

// Load reads config from the specified path with defaults, .env and
// environment overrides applied. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with command-line flags layered on top. Only flags
// the user actually set take effect.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	loadDotEnv(path)

	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'ipmicollect init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.WrapWithCode(err, errors.ErrConfig,
						"Couldn't bind flag --"+name, "")
				}
			}
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .ipmicollect.yaml in current directory
// 3. .ipmicollect.yaml in parent directories (stops at git root or home)
// 4. ~/.config/ipmicollect/config.yaml
// 5. /etc/ipmicollect/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	home, _ := os.UserHomeDir()
	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && parent == home {
			break
		}
		dir = parent

		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	if _, err := os.Stat(SystemConfigPath); err == nil {
		return SystemConfigPath, nil
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/ipmicollect/config.yaml.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("sensor_command", d.SensorCommand)
	v.SetDefault("sensors", d.Sensors)
	v.SetDefault("plugin", d.Plugin)
	v.SetDefault("hosts", d.Hosts)
	v.SetDefault("shutdown_grace", d.ShutdownGrace)
	v.SetDefault("ssh.jump", d.SSH.Jump)
	v.SetDefault("ssh.timeout", d.SSH.Timeout)
	v.SetDefault("ssh.strict_host_keys", d.SSH.StrictHostKeys)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		stringToListHook(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		where := "your environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the values in "+where)
	}

	cfg.Log.File = Expand(cfg.Log.File)
	return cfg, nil
}

// secondsToDurationHook lets durations be written as plain seconds
// ("interval: 10"), the way collectd configs usually state intervals.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			if secs, err := strconv.ParseFloat(s, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}

// stringToListHook splits a string on commas or whitespace when a list is
// expected, so IPMICOLLECT_SENSORS="CPU1,CPU2" and "CPU1 CPU2" both work.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if strings.TrimSpace(s) == "" {
			return []string{}, nil
		}
		return strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}), nil
	}
}

// loadDotEnv reads .env from the working directory and from the config
// file's directory. Variables already set in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			candidates = append(candidates, filepath.Join(dir, ".env"))
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}
