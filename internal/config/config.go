// Package config loads pane-relay configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (PANE_RELAY_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order:
//  1. .pane-relay.yaml in current directory
//  2. ~/.config/pane-relay/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timvw/pane-relay/internal/shell"
)

// Config holds all pane-relay configuration.
type Config struct {
	// Shell family of the target panes: bash, zsh or fish.
	Shell string `yaml:"shell"`

	// Multiplexer
	Mux        string `yaml:"mux"`         // "tmux"; empty auto-detects
	TmuxSocket string `yaml:"tmux_socket"` // -L name, or -S path when absolute

	// Execution tracking
	CaptureLines int    `yaml:"capture_lines"`
	PollInterval string `yaml:"poll_interval"` // Go duration string, e.g. "500ms"
	WaitTimeout  string `yaml:"wait_timeout"`  // "0" or "off" waits forever
	EvictAfter   string `yaml:"evict_after"`

	// History
	HistoryDB string `yaml:"history_db"` // empty disables the audit log

	// Logging
	LogDir    string `yaml:"log_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed values (not from YAML, set after loading)
	Family               shell.Family  `yaml:"-"`
	PollIntervalDuration time.Duration `yaml:"-"`
	WaitTimeoutDuration  time.Duration `yaml:"-"`
	EvictAfterDuration   time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Shell:        string(shell.Bash),
		CaptureLines: 1000,
		PollInterval: "500ms",
		WaitTimeout:  "2m",
		EvictAfter:   "60m",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve parses the string settings into their typed fields. Call it again
// after overriding fields from flags.
func (c *Config) Resolve() error {
	c.Family = shell.ParseFamily(c.Shell)

	var err error
	c.PollIntervalDuration, err = parseDurationOrDisable(c.PollInterval, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.PollInterval, err)
	}
	if c.PollIntervalDuration <= 0 {
		return fmt.Errorf("invalid poll interval %q: must be positive", c.PollInterval)
	}
	c.WaitTimeoutDuration, err = parseDurationOrDisable(c.WaitTimeout, 2*time.Minute)
	if err != nil {
		return fmt.Errorf("invalid wait timeout %q: %w", c.WaitTimeout, err)
	}
	c.EvictAfterDuration, err = parseDurationOrDisable(c.EvictAfter, 60*time.Minute)
	if err != nil {
		return fmt.Errorf("invalid evict_after %q: %w", c.EvictAfter, err)
	}
	if c.CaptureLines <= 0 {
		return fmt.Errorf("invalid capture_lines %d: must be positive", c.CaptureLines)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	if data, err := os.ReadFile(".pane-relay.yaml"); err == nil {
		return ".pane-relay.yaml", data, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-relay", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Shell != "" {
		cfg.Shell = file.Shell
	}
	if file.Mux != "" {
		cfg.Mux = file.Mux
	}
	if file.TmuxSocket != "" {
		cfg.TmuxSocket = file.TmuxSocket
	}
	if file.CaptureLines > 0 {
		cfg.CaptureLines = file.CaptureLines
	}
	if file.PollInterval != "" {
		cfg.PollInterval = file.PollInterval
	}
	if file.WaitTimeout != "" {
		cfg.WaitTimeout = file.WaitTimeout
	}
	if file.EvictAfter != "" {
		cfg.EvictAfter = file.EvictAfter
	}
	if file.HistoryDB != "" {
		cfg.HistoryDB = file.HistoryDB
	}
	if file.LogDir != "" {
		cfg.LogDir = file.LogDir
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"PANE_RELAY_SHELL", &cfg.Shell},
		{"PANE_RELAY_MUX", &cfg.Mux},
		{"PANE_RELAY_TMUX_SOCKET", &cfg.TmuxSocket},
		{"PANE_RELAY_POLL_INTERVAL", &cfg.PollInterval},
		{"PANE_RELAY_WAIT_TIMEOUT", &cfg.WaitTimeout},
		{"PANE_RELAY_EVICT_AFTER", &cfg.EvictAfter},
		{"PANE_RELAY_HISTORY_DB", &cfg.HistoryDB},
		{"PANE_RELAY_LOG_DIR", &cfg.LogDir},
		{"PANE_RELAY_LOG_LEVEL", &cfg.LogLevel},
		{"PANE_RELAY_LOG_FORMAT", &cfg.LogFormat},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTELEndpoint},
		{"OTEL_EXPORTER_OTLP_HEADERS", &cfg.OTELHeaders},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("PANE_RELAY_CAPTURE_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PANE_RELAY_CAPTURE_LINES %q: %w", v, err)
		}
		cfg.CaptureLines = n
	}
	return nil
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
