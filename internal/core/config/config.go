package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Rollup   RollupConfig   `koanf:"rollup"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

// DatabaseConfig is the rollup store connection. The store owns its schema
// and may migrate it on startup.
type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// UpstreamConfig is the read-only connection to the transactional store that
// holds orders, line items, refunds and currencies. Its schema is owned
// elsewhere and never migrated from here.
type UpstreamConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
}

type RollupConfig struct {
	Enabled      bool   `koanf:"enabled"`
	TickInterval string `koanf:"tick_interval"` // parsed and validated on startup
	BackfillDays int    `koanf:"backfill_days"`
	MaxRetries   int    `koanf:"max_retries"`
	RetryBackoff string `koanf:"retry_backoff"`
}

func (c RollupConfig) TickDuration() (time.Duration, error) {
	return time.ParseDuration(c.TickInterval)
}

func (c RollupConfig) BackoffDuration() (time.Duration, error) {
	return time.ParseDuration(c.RetryBackoff)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Database.Type != "" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if strings.TrimSpace(c.Upstream.DSN) == "" {
		return fmt.Errorf("upstream.dsn is required")
	}
	if c.Upstream.MaxOpenConns <= 0 {
		return fmt.Errorf("upstream.max_open_conns must be > 0")
	}
	if c.Upstream.MaxIdleConns <= 0 {
		return fmt.Errorf("upstream.max_idle_conns must be > 0")
	}

	tick, err := c.Rollup.TickDuration()
	if err != nil {
		return fmt.Errorf("invalid rollup.tick_interval %q: %w", c.Rollup.TickInterval, err)
	}
	if tick <= 0 {
		return fmt.Errorf("rollup.tick_interval must be > 0")
	}
	backoff, err := c.Rollup.BackoffDuration()
	if err != nil {
		return fmt.Errorf("invalid rollup.retry_backoff %q: %w", c.Rollup.RetryBackoff, err)
	}
	if backoff <= 0 {
		return fmt.Errorf("rollup.retry_backoff must be > 0")
	}
	if c.Rollup.BackfillDays < 0 {
		return fmt.Errorf("rollup.backfill_days must be >= 0")
	}
	if c.Rollup.MaxRetries < 0 {
		return fmt.Errorf("rollup.max_retries must be >= 0")
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"database.type":           "postgres",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"upstream.dsn":            "",
		"upstream.max_open_conns": 10,
		"upstream.max_idle_conns": 10,
		"rollup.enabled":          true,
		"rollup.tick_interval":    "15m",
		"rollup.backfill_days":    7,
		"rollup.max_retries":      3,
		"rollup.retry_backoff":    "2s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("REVLENS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "REVLENS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
