// Package config loads cedar's configuration from a TOML file with
// environment overrides, and can watch the file for live reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/cedar/internal/logging"
)

// EnvPrefix is the prefix shared by all cedar environment variables.
const EnvPrefix = "CEDAR_"

// Config is the full cedar configuration.
type Config struct {
	Core      CoreConfig      `toml:"core"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// CoreConfig configures the backend process.
type CoreConfig struct {
	// Path is the backend executable. Empty means: consult
	// CED_BIN_PATH, then fall back to ced-core on PATH.
	Path string `toml:"path"`

	// Args is extra argv passed to the backend.
	Args []string `toml:"args"`

	// ShutdownTimeout is how long to wait after SIGTERM before
	// sending SIGKILL, in seconds.
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// LoggingConfig configures diagnostics output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// TelemetryConfig configures the OTLP exporters. An empty endpoint
// disables export entirely.
type TelemetryConfig struct {
	Endpoint string `toml:"endpoint"`
	Headers  string `toml:"headers"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Core: CoreConfig{
			ShutdownTimeout: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the conventional config file location, or an
// empty string when the user config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cedar", "config.toml")
}

// Load reads the config file at path, layering it over the defaults
// and applying environment overrides on top. A missing file is not an
// error; the defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// File doesn't exist, not an error.
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envOverrides maps environment variables to config fields.
var envOverrides = map[string]func(*Config, string){
	"CEDAR_LOG_LEVEL":     func(c *Config, v string) { c.Logging.Level = v },
	"CEDAR_CORE_PATH":     func(c *Config, v string) { c.Core.Path = v },
	"CEDAR_CORE_ARGS":     func(c *Config, v string) { c.Core.Args = strings.Fields(v) },
	"CEDAR_OTLP_ENDPOINT": func(c *Config, v string) { c.Telemetry.Endpoint = v },
	"CEDAR_OTLP_HEADERS":  func(c *Config, v string) { c.Telemetry.Headers = v },
}

// applyEnv overlays CEDAR_* environment variables onto the config.
// Empty values are ignored rather than treated as explicit settings.
func (c *Config) applyEnv() {
	for env, apply := range envOverrides {
		if v := os.Getenv(env); v != "" {
			apply(c, v)
		}
	}
}

// Validate checks the configuration for values that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: invalid log level %q (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Core.ShutdownTimeout < 0 {
		return fmt.Errorf("config: core.shutdown_timeout must not be negative")
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Logging.Level)
}
