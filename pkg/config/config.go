// Package config builds the immutable gateway configuration. Settings are
// resolved once at startup, in increasing precedence: built-in defaults, an
// optional YAML file, the dotenv file at ~/.config/shellgate/.env, then the
// process environment. Components receive the resulting struct by value and
// never re-read the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mcp-noble/shellgate/pkg/env"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultMaxOutputSize  = 1 << 20 // 1 MiB per stream
	DefaultMaxConcurrent  = 4
	DefaultRateLimit      = 60 // requests per minute
	DefaultListenAddr     = ":8080"
	DefaultHistoryLimit   = 50
	probeTimeout          = 5 * time.Second
)

// Config defines runtime settings for the gateway.
type Config struct {
	AllowedCommands       string `yaml:"allowedCommands"`
	CommandTimeoutSeconds int    `yaml:"commandTimeoutSeconds"`
	MaxOutputSize         int    `yaml:"maxOutputSize"`
	MaxConcurrent         int    `yaml:"maxConcurrent"`
	RateLimit             int    `yaml:"rateLimit"`
	ListenAddr            string `yaml:"listenAddr"`
	WorkDir               string `yaml:"workDir"`
	LogLevel              string `yaml:"logLevel"`
	LogFormat             string `yaml:"logFormat"`
	AuditLog              string `yaml:"auditLog"`
	HistoryLimit          int    `yaml:"historyLimit"`
}

// CommandTimeout returns the per-command wall clock limit.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the per-probe limit used by get_system_info.
func (c *Config) ProbeTimeout() time.Duration {
	return probeTimeout
}

// Load resolves the configuration. path may name a YAML file; an empty path
// skips the file layer. A missing dotenv file is fine; a present but
// unreadable one is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{
		CommandTimeoutSeconds: int(DefaultCommandTimeout / time.Second),
		MaxOutputSize:         DefaultMaxOutputSize,
		MaxConcurrent:         DefaultMaxConcurrent,
		RateLimit:             DefaultRateLimit,
		ListenAddr:            DefaultListenAddr,
		LogLevel:              "info",
		HistoryLimit:          DefaultHistoryLimit,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.LoadDefault(); err != nil {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}
	cfg.applyEnv()

	if cfg.WorkDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.WorkDir = home
	}
	if cfg.CommandTimeoutSeconds <= 0 {
		cfg.CommandTimeoutSeconds = int(DefaultCommandTimeout / time.Second)
	}
	if cfg.MaxOutputSize <= 0 {
		cfg.MaxOutputSize = DefaultMaxOutputSize
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ALLOWED_COMMANDS"); v != "" {
		c.AllowedCommands = v
	}
	if v, ok := envInt("COMMAND_TIMEOUT"); ok {
		c.CommandTimeoutSeconds = v
	}
	if v, ok := envInt("MAX_OUTPUT_SIZE"); ok {
		c.MaxOutputSize = v
	}
	if v, ok := envInt("MAX_CONCURRENT"); ok {
		c.MaxConcurrent = v
	}
	if v, ok := envInt("RATE_LIMIT"); ok {
		c.RateLimit = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	} else if port := os.Getenv("MCP_PORT"); port != "" {
		// Legacy installer configs name only the port.
		c.ListenAddr = ":" + port
	}
	if v := os.Getenv("WORKDIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("AUDIT_LOG"); v != "" {
		c.AuditLog = v
	}
	if v, ok := envInt("HISTORY_LIMIT"); ok {
		c.HistoryLimit = v
	}
}

// envInt parses an integer environment variable. Unset or malformed values
// report ok=false so the default stays in effect.
func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// DefaultConfigPath returns the default location for the YAML config file,
// or "" when it does not exist.
func DefaultConfigPath() string {
	if path := os.Getenv("SHELLGATE_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "shellgate", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
