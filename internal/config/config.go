// Package config loads service configuration from defaults, an optional
// YAML file and BRIEFS_* environment variables, in that order of
// precedence (later wins). Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFile is the config file looked up in the working directory when no
// explicit path is given.
const DefaultFile = "briefs.yaml"

// EnvPrefix prefixes every environment override, e.g. BRIEFS_DB.
const EnvPrefix = "BRIEFS"

// Config is the full service configuration.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"db" mapstructure:"db"`

	// Addr is the HTTP listen address.
	Addr string `yaml:"addr" mapstructure:"addr"`

	// AutosaveInterval is the guided-review autosave period.
	AutosaveInterval time.Duration `yaml:"autosave_interval" mapstructure:"autosave_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// CatalogDir optionally points at a CUE package overriding the
	// built-in question catalog.
	CatalogDir string `yaml:"catalog_dir" mapstructure:"catalog_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database:         "briefs.db",
		Addr:             ":8080",
		AutosaveInterval: 60 * time.Second,
		LogLevel:         "info",
	}
}

// Load reads configuration. An empty path looks for DefaultFile in the
// working directory and silently skips it if missing; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("db", def.Database)
	v.SetDefault("addr", def.Addr)
	v.SetDefault("autosave_interval", def.AutosaveInterval)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("catalog_dir", def.CatalogDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	default:
		if _, err := os.Stat(DefaultFile); err == nil {
			v.SetConfigFile(DefaultFile)
		}
	}
	if v.ConfigFileUsed() != "" {
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Database == "" {
		problems = append(problems, "db must not be empty")
	}
	if c.AutosaveInterval <= 0 {
		problems = append(problems, "autosave_interval must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: must be debug, info, warn or error", name)
	}
	return level, nil
}
