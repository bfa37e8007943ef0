package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/bit/pkg/bit/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures console and file logging.
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	Trace    bool           `mapstructure:"trace" yaml:"trace"`
	Debug    bool           `mapstructure:"debug" yaml:"debug"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// OutputConfig configures how results are printed.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  bool   `mapstructure:"color" yaml:"color"`
}

// StatusConfig configures the pending-changes comparison.
type StatusConfig struct {
	IgnoreCreationTime bool          `mapstructure:"ignore_creation_time" yaml:"ignore_creation_time"`
	WatchDebounce      time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
}

// Config represents the user configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Status  StatusConfig  `mapstructure:"status" yaml:"status"`
	Ignore  []string      `mapstructure:"ignore" yaml:"ignore"`
}

// New returns a viper instance with bit's defaults, search paths and
// environment binding. A non-empty cfgFile replaces the search paths.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.trace", false)
	v.SetDefault("logging.debug", false)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("output.format", DefaultFormat)
	v.SetDefault("output.color", true)
	v.SetDefault("status.ignore_creation_time", false)
	v.SetDefault("status.watch_debounce", DefaultWatchDebounce)
	v.SetDefault("ignore", []string{})

	return v
}

// Load reads configuration from the default locations and the environment.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/bit/config.yaml
//   - $HOME/.config/bit/config.yaml
//
// A missing file is not an error.
func Load() (*Config, error) {
	return Read(New(""))
}

// Read reads the config file v points at, if any, and decodes the result.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Logging.Path != "" {
		path, err := ExpandPath(cfg.Logging.Path)
		if err != nil {
			return nil, err
		}
		cfg.Logging.Path = path
	}

	return &cfg, nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c LoggingConfig) LoggingOptions() (logging.Config, error) {
	out := logging.Config{
		Level: c.Level,
		Trace: c.Trace,
		Debug: c.Debug,
		Path:  c.Path,
		Rotation: logging.RotationConfig{
			MaxBackups: c.Rotation.MaxBackups,
		},
	}

	if c.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(c.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("parsing logging.rotation.max_size %q: %w", c.Rotation.MaxSize, err)
		}
		out.Rotation.MaxSize = int64(size)
	}

	return out, nil
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# bit configuration

logging:
  # Threshold: trace, debug, normal, success, error, critical
  level: %s
  # Trace and debug output are switched on independently of the threshold
  trace: false
  debug: false
  # Optional log file (empty disables file logging)
  path: ""
  rotation:
    max_size: %s
    max_backups: %d

output:
  # pretty, plain, json, yaml, markdown
  format: %s
  color: true

status:
  # Skip creation time when comparing, for file systems without birth time
  ignore_creation_time: false
  # Quiet period before status --watch re-runs
  watch_debounce: %s

# Extra ignore patterns applied to every repository (.bit is always ignored)
ignore: []
`, DefaultLogLevel, DefaultLogMaxSize, DefaultLogMaxBackups, DefaultFormat, DefaultWatchDebounce)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/bit/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultLogPath returns the suggested log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}
