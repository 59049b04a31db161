package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasmrun/errors"
	"github.com/wippyai/wasmrun/hostenv"
)

const (
	// AppName is the application name.
	AppName = "wasmrun"

	// EnvPrefix prefixes environment overrides, e.g. WASMRUN_DIR.
	EnvPrefix = "WASMRUN"

	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
)

// Config holds the invoker's settings.
type Config struct {
	// Dir is the directory module identifiers are resolved against.
	Dir string `mapstructure:"dir"`

	// Extension is appended to module identifiers.
	Extension string `mapstructure:"ext"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// NoColor disables styled diagnostics.
	NoColor bool `mapstructure:"no_color"`

	// WIT is an optional file of WIT function declarations refining export
	// signatures.
	WIT string `mapstructure:"wit"`

	// MemoryLimitPages caps guest memory in 64KiB pages; 0 means no extra cap.
	// A cap below the environment's own memory would make every module fail.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Dir:       ".",
		Extension: ".wasm",
		LogLevel:  "warn",
	}
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// ConfigFilePath is used exclusively when set; it must exist.
	ConfigFilePath string

	// ConfigDirPath overrides the per-user configuration directory.
	ConfigDirPath string
}

// ConfigDir returns the per-user configuration directory,
// e.g. $XDG_CONFIG_HOME/wasmrun on Linux.
//
//nolint:revive // ConfigDir reads better than Dir for callers
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load layers defaults, an optional config file and WASMRUN_* environment
// variables, in increasing precedence. Flags are applied by the caller on
// top of the result.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("dir", defaults.Dir)
	v.SetDefault("ext", defaults.Extension)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("no_color", defaults.NoColor)
	v.SetDefault("wit", defaults.WIT)
	v.SetDefault("memory_limit_pages", defaults.MemoryLimitPages)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Value(opts.ConfigFilePath).
				Detail("read config file %s", opts.ConfigFilePath).
				Cause(err).
				Build()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			if d, err := ConfigDir(); err == nil {
				dir = d
			}
		}
		v.SetConfigName(ConfigFileName)
		if dir != "" {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, "", errors.New(errors.PhaseConfig, errors.KindInvalidData).
					Detail("read config file").
					Cause(err).
					Build()
			}
			// No config file: defaults and environment only.
		} else {
			resolvedPath = v.ConfigFileUsed()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

// Normalize validates the settings and fills in canonical forms.
func (c *Config) Normalize() error {
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Extension == "" {
		c.Extension = ".wasm"
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if p := c.MemoryLimitPages; p != 0 && (p < hostenv.DefaultMemoryPages || p > hostenv.MaxPages) {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(p).
			Detail("memory limit of %d pages must be 0 or between %d and %d",
				p, hostenv.DefaultMemoryPages, hostenv.MaxPages).
			Build()
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.WarnLevel, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(c.LogLevel).
			Detail("unknown log level %q", c.LogLevel).
			Cause(err).
			Build()
	}
	return lvl, nil
}
