// Package config loads filterman settings and filter declaration files.
//
// Settings come from, highest precedence first: command-line flags,
// FILTERMAN_* environment variables, and a .filterman.yaml file found in the
// working directory or in ~/.config/filterman. Data source keys (filters,
// data, db, table) let a project pin its inputs once instead of repeating
// them on every invocation.
//
// Filter declaration files are parsed separately by [ParseDeclarations].
package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Serve and watch defaults.
const (
	DefaultListen          = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultDebounce        = 300 * time.Millisecond
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FILTERMAN"

// Config is the merged filterman configuration.
type Config struct {
	LogLevel  string `mapstructure:"log-level" json:"logLevel"`
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// Quiet raises the log level to error.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// Filters is the declaration file.
	Filters string `mapstructure:"filters" json:"filters,omitempty"`

	// Data is a JSON or YAML records file.
	Data string `mapstructure:"data" json:"data,omitempty"`

	// DB is a SQLite database path or ":memory:".
	DB string `mapstructure:"db" json:"db,omitempty"`

	// Table is the SQLite table. Empty means the host name.
	Table string `mapstructure:"table" json:"table,omitempty"`

	Listen          string        `mapstructure:"listen" json:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" json:"shutdownTimeout"`
	Debounce        time.Duration `mapstructure:"debounce" json:"debounce"`

	// ConfigFile is the file Load read, if any.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:        LogLevelInfo,
		LogFormat:       LogFormatText,
		Listen:          DefaultListen,
		ShutdownTimeout: DefaultShutdownTimeout,
		Debounce:        DefaultDebounce,
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel))
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat))
	}

	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("invalid listen address %q: %w", c.Listen, err))
	}

	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid shutdown timeout %s: must be positive", c.ShutdownTimeout))
	}

	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("invalid debounce %s: must not be negative", c.Debounce))
	}

	return errors.Join(errs...)
}

// EffectiveLogLevel is LogLevel, or error when Quiet is set.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load merges defaults, the config file, the environment, and the flags of
// cmd and its parents. Each call uses its own viper instance.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("filters", "")
	v.SetDefault("data", "")
	v.SetDefault("db", "")
	v.SetDefault("table", "")
	v.SetDefault("listen", d.Listen)
	v.SetDefault("shutdown-timeout", d.ShutdownTimeout)
	v.SetDefault("debounce", d.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Relative paths in a config file are relative to that file.
	if cfg.ConfigFile != "" {
		base := filepath.Dir(cfg.ConfigFile)
		for key, p := range map[string]*string{"filters": &cfg.Filters, "data": &cfg.Data, "db": &cfg.DB} {
			if fromFile(v, cmd, key) {
				*p = resolvePath(base, *p)
			}
		}
	}

	return &cfg, nil
}

func readFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".filterman")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "filterman"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds the local flags of cmd and the persistent flags of cmd
// and every parent.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// fromFile reports whether key was set by the config file rather than by a
// flag or the environment.
func fromFile(v *viper.Viper, cmd *cobra.Command, key string) bool {
	if !v.InConfig(key) {
		return false
	}

	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(key)); ok {
		return false
	}

	if cmd != nil {
		if f := cmd.Flags().Lookup(key); f != nil && f.Changed {
			return false
		}
	}

	return true
}

func resolvePath(base, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(base, p)
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the Config stored in ctx, or Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
