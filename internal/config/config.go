// ABOUTME: Configuration loading and parsing for botbridge
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/2389/botbridge/internal/push"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Ordering values accepted by push.ordering.
const (
	OrderingInsertion = "insertion"
	OrderingSequence  = "sequence"
)

// MemoryDatabase keeps conversation state in process memory only.
const MemoryDatabase = ":memory:"

// MinSecretLength is the minimum auth.jwt_secret length when auth is enabled.
const MinSecretLength = 32

// Default values applied by Load.
const (
	DefaultHTTPAddr          = ":3978"
	DefaultTurnPath          = "/api/messages"
	DefaultMetricsPath       = "/metrics"
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultDedupeTTL         = 5 * time.Minute
)

// Config represents the complete botbridge configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Push      PushConfig      `yaml:"push" toml:"push"`
	Turn      TurnConfig      `yaml:"turn" toml:"turn"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds turn endpoint authentication configuration.
// An empty JWTSecret leaves the turn endpoint open.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// PushConfig holds the push protocol agent connection settings.
type PushConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	URL       string `yaml:"url" toml:"url"`
	AccountID string `yaml:"account_id" toml:"account_id"`
	AgentID   string `yaml:"agent_id" toml:"agent_id"`
	Token     string `yaml:"token" toml:"token"`
	Ordering  string `yaml:"ordering" toml:"ordering"`
	// Greeting defaults to true when unset.
	Greeting  *bool  `yaml:"greeting" toml:"greeting"`

	HeartbeatInterval time.Duration `yaml:"-" toml:"-"`
	RequestTimeout    time.Duration `yaml:"-" toml:"-"`
	DedupeTTL         time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval" toml:"heartbeat_interval"`
	RequestTimeoutRaw    string `yaml:"request_timeout" toml:"request_timeout"`
	DedupeTTLRaw         string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// GreetingEnabled reports whether a join greeting is sent. Unset means enabled.
func (p PushConfig) GreetingEnabled() bool {
	return p.Greeting == nil || *p.Greeting
}

// TurnConfig holds the turn protocol endpoint settings.
type TurnConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(expandEnvVars(string(data)), strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes already expanded configuration text, then applies defaults and validates.
func Parse(text string, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if _, err := toml.Decode(text, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Database.Path == "" {
		c.Database.Path = MemoryDatabase
	}
	if c.Turn.Path == "" {
		c.Turn.Path = DefaultTurnPath
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Push.Ordering == "" {
		c.Push.Ordering = OrderingInsertion
	}
	if c.Push.Greeting == nil {
		greeting := true
		c.Push.Greeting = &greeting
	}
	if c.Push.HeartbeatInterval == 0 {
		c.Push.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Push.RequestTimeout == 0 {
		c.Push.RequestTimeout = DefaultRequestTimeout
	}
	if c.Push.DedupeTTL == 0 {
		c.Push.DedupeTTL = DefaultDedupeTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Turn.Enabled && !c.Push.Enabled {
		return fmt.Errorf("at least one of turn.enabled or push.enabled must be true")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinSecretLength)
	}

	if !strings.HasPrefix(c.Turn.Path, "/") {
		return fmt.Errorf("turn.path must start with /")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if c.Push.Enabled {
		if c.Push.URL == "" {
			return fmt.Errorf("push.url is required when push is enabled")
		}
		if !strings.HasPrefix(c.Push.URL, "ws://") && !strings.HasPrefix(c.Push.URL, "wss://") {
			return fmt.Errorf("push.url must use ws:// or wss://")
		}
		if strings.Contains(c.Push.URL, push.AccountPlaceholder) && c.Push.AccountID == "" {
			return fmt.Errorf("push.account_id is required when push.url contains %s", push.AccountPlaceholder)
		}
		if c.Push.AgentID == "" {
			return fmt.Errorf("push.agent_id is required when push is enabled")
		}
	}
	switch c.Push.Ordering {
	case OrderingInsertion, OrderingSequence:
	default:
		return fmt.Errorf("push.ordering must be %q or %q, got %q", OrderingInsertion, OrderingSequence, c.Push.Ordering)
	}
	if c.Push.HeartbeatInterval < 0 || c.Push.RequestTimeout < 0 || c.Push.DedupeTTL < 0 {
		return fmt.Errorf("push durations must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"heartbeat_interval", cfg.Push.HeartbeatIntervalRaw, &cfg.Push.HeartbeatInterval},
		{"request_timeout", cfg.Push.RequestTimeoutRaw, &cfg.Push.RequestTimeout},
		{"dedupe_ttl", cfg.Push.DedupeTTLRaw, &cfg.Push.DedupeTTL},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// DefaultPath returns the config file location: BOTBRIDGE_CONFIG if set, otherwise
// $XDG_CONFIG_HOME/botbridge/config.yaml, falling back to ~/.config/botbridge/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("BOTBRIDGE_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "botbridge", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "botbridge", "config.yaml")
}
