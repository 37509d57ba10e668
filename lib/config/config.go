// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "BMLOG_CONFIG"

// Config is the bmlogd configuration.
type Config struct {
	// Bus configures the CAN interface.
	Bus BusConfig `yaml:"bus"`

	// Log configures the local log file and the sync session timers.
	Log LogConfig `yaml:"log"`

	// Query configures the unix socket serving status and log blocks.
	Query QueryConfig `yaml:"query"`

	// Monitor configures the receive loop.
	Monitor MonitorConfig `yaml:"monitor"`

	// Logging configures the daemon's diagnostics. Level also sets the
	// level of bmlog's progress messages.
	Logging LoggingConfig `yaml:"logging"`

	// Decoders overrides the enable state of individual decoders,
	// keyed by PGN. Decoders not listed keep their default (enabled).
	Decoders map[uint32]bool `yaml:"decoders"`
}

// BusConfig configures the CAN interface.
type BusConfig struct {
	// Interface is the SocketCAN network interface.
	// Default: can0
	Interface string `yaml:"interface"`

	// SourceAddress is the bus address bmlogd transmits from.
	// Default: 64
	SourceAddress uint8 `yaml:"source_address"`
}

// LogConfig configures the local copy of the device log.
type LogConfig struct {
	// Path is the CSV log file.
	// Default: ${HOME}/.local/share/bmlog/bmlog.csv
	Path string `yaml:"path"`

	// RetryTimeout is how long to wait for a reply before resending.
	// Default: 1s
	RetryTimeout Duration `yaml:"retry_timeout"`

	// ResyncInterval is how long to stay idle between sync cycles.
	// Default: 60s
	ResyncInterval Duration `yaml:"resync_interval"`
}

// QueryConfig configures the query socket.
type QueryConfig struct {
	// SocketPath is the unix socket bmlogd listens on.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/bmlog/bmlogd.sock
	SocketPath string `yaml:"socket_path"`
}

// MonitorConfig configures the receive loop.
type MonitorConfig struct {
	// TickInterval is the period of the decoder tick.
	// Default: 100ms
	TickInterval Duration `yaml:"tick_interval"`

	// BatteryStaleAfter is how long battery status may be silent
	// before the device is considered lost.
	// Default: 5s
	BatteryStaleAfter Duration `yaml:"battery_stale_after"`
}

// LoggingConfig configures diagnostics output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalYAML parses a duration string such as "250ms".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the default configuration. LoadFile overlays the
// file on top of it.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			Interface:     "can0",
			SourceAddress: 64,
		},
		Log: LogConfig{
			Path:           "${HOME}/.local/share/bmlog/bmlog.csv",
			RetryTimeout:   Duration(time.Second),
			ResyncInterval: Duration(60 * time.Second),
		},
		Query: QueryConfig{
			SocketPath: "${XDG_RUNTIME_DIR:-/tmp}/bmlog/bmlogd.sock",
		},
		Monitor: MonitorConfig{
			TickInterval:      Duration(100 * time.Millisecond),
			BatteryStaleAfter: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by BMLOG_CONFIG.
// There is no search path: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your bmlog.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and expands
// variables in path fields. An empty path yields the expanded defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Log.Path = expandVars(c.Log.Path, vars)
	c.Query.SocketPath = expandVars(c.Query.SocketPath, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Bus.Interface == "" {
		errs = append(errs, fmt.Errorf("bus.interface is required"))
	}
	if c.Bus.SourceAddress >= 254 {
		errs = append(errs, fmt.Errorf("bus.source_address must be below 254, got %d", c.Bus.SourceAddress))
	}

	if c.Log.Path == "" {
		errs = append(errs, fmt.Errorf("log.path is required"))
	}
	if c.Log.RetryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("log.retry_timeout must be positive"))
	}
	if c.Log.ResyncInterval <= 0 {
		errs = append(errs, fmt.Errorf("log.resync_interval must be positive"))
	}

	if c.Query.SocketPath == "" {
		errs = append(errs, fmt.Errorf("query.socket_path is required"))
	}

	if c.Monitor.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("monitor.tick_interval must be positive"))
	}
	if c.Monitor.BatteryStaleAfter <= 0 {
		errs = append(errs, fmt.Errorf("monitor.battery_stale_after must be positive"))
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be one of: [text json], got %q", c.Logging.Format))
	}

	for pgn := range c.Decoders {
		if pgn == 0 || pgn > 0x3ffff {
			errs = append(errs, fmt.Errorf("decoders: %d is not a valid PGN", pgn))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DecoderEnabled reports whether the decoder for pgn should run.
func (c *Config) DecoderEnabled(pgn uint32) bool {
	enabled, ok := c.Decoders[pgn]
	return !ok || enabled
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q (want debug, info, warn or error)", name)
}
