// Package common provides shared utilities for the signal server.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the signal server.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Clients     ClientsConfig  `toml:"clients"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Scoring     ScoringConfig  `toml:"scoring"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the storage engine.
// Engine "badger" (default) uses an embedded BadgerHold store at Path.
// Engine "surrealdb" connects to an external SurrealDB instance.
type StorageConfig struct {
	Engine    string          `toml:"engine"`
	Path      string          `toml:"path"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds external collaborator client configurations.
type ClientsConfig struct {
	Facts   FactsConfig   `toml:"facts"`
	Webhook WebhookConfig `toml:"webhook"`
}

// FactsConfig configures the data-access collaborator (raw metric
// measurements and price history per subject).
type FactsConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the request timeout.
func (c *FactsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// WebhookConfig configures the notification delivery collaborator.
type WebhookConfig struct {
	URL     string `toml:"url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the delivery timeout.
func (c *WebhookConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// PipelineConfig configures the analysis job orchestrator.
type PipelineConfig struct {
	Workers        int    `toml:"workers"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryBackoff   string `toml:"retry_backoff"`
	BackoffCap     string `toml:"backoff_cap"`
	StaleTimeout   string `toml:"stale_timeout"`
	ReaperInterval string `toml:"reaper_interval"`
	JobRetention   string `toml:"job_retention"`
	RescanInterval string `toml:"rescan_interval"`
}

// GetWorkers returns the worker pool size.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 3
	}
	return c.Workers
}

// GetMaxAttempts returns the retry ceiling per subject analysis.
func (c *PipelineConfig) GetMaxAttempts() int {
	if c.MaxAttempts <= 0 {
		return 3
	}
	return c.MaxAttempts
}

// GetRetryBackoff returns the base backoff applied before a retried job
// becomes eligible for dequeue. Doubles per attempt.
func (c *PipelineConfig) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.RetryBackoff)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetBackoffCap returns the maximum retry backoff.
func (c *PipelineConfig) GetBackoffCap() time.Duration {
	d, err := time.ParseDuration(c.BackoffCap)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GetStaleTimeout returns how long a processing job may go without a phase
// update before it is considered abandoned.
func (c *PipelineConfig) GetStaleTimeout() time.Duration {
	d, err := time.ParseDuration(c.StaleTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GetReaperInterval returns how often the stale-job reaper runs.
func (c *PipelineConfig) GetReaperInterval() time.Duration {
	d, err := time.ParseDuration(c.ReaperInterval)
	if err != nil || d <= 0 {
		return 1 * time.Minute
	}
	return d
}

// GetJobRetention returns how long terminal jobs are kept before purge.
func (c *PipelineConfig) GetJobRetention() time.Duration {
	d, err := time.ParseDuration(c.JobRetention)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// GetRescanInterval returns the staleness TTL for tracked subjects; a
// subject whose last analysis is older than this is re-enqueued by the
// scheduler.
func (c *PipelineConfig) GetRescanInterval() time.Duration {
	d, err := time.ParseDuration(c.RescanInterval)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// ScoringConfig configures score fusion and the notification policy.
type ScoringConfig struct {
	MacroBlend            float64 `toml:"macro_blend"`
	NotifyThreshold       int     `toml:"notify_threshold"`
	StrongThreshold       int     `toml:"strong_threshold"`
	NotificationRetention string  `toml:"notification_retention"`
}

// GetMacroBlend returns the macro share of the integrated score (0-1).
func (c *ScoringConfig) GetMacroBlend() float64 {
	if c.MacroBlend <= 0 || c.MacroBlend >= 1 {
		return 0.3
	}
	return c.MacroBlend
}

// GetNotifyThreshold returns the canonical notification threshold.
func (c *ScoringConfig) GetNotifyThreshold() int {
	if c.NotifyThreshold <= 0 || c.NotifyThreshold > 100 {
		return 75
	}
	return c.NotifyThreshold
}

// GetStrongThreshold returns the "strong signal" threshold used to tag
// notification messages. Never lower than the notify threshold.
func (c *ScoringConfig) GetStrongThreshold() int {
	if c.StrongThreshold <= 0 || c.StrongThreshold > 100 {
		return 85
	}
	if c.StrongThreshold < c.GetNotifyThreshold() {
		return c.GetNotifyThreshold()
	}
	return c.StrongThreshold
}

// GetNotificationRetention returns how long notification records (and
// their dedup keys) are kept before purge. Always at least a day, since
// dedup buckets are per UTC day.
func (c *ScoringConfig) GetNotificationRetention() time.Duration {
	d, err := time.ParseDuration(c.NotificationRetention)
	if err != nil || d < 24*time.Hour {
		return 30 * 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Storage: StorageConfig{
			Engine: "badger",
			Path:   "data/signals",
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "shaharstocks",
				Database:  "signals",
				Username:  "root",
				Password:  "root",
			},
		},
		Clients: ClientsConfig{
			Facts: FactsConfig{
				RateLimit: 10,
				Timeout:   "30s",
			},
			Webhook: WebhookConfig{
				Timeout: "10s",
			},
		},
		Pipeline: PipelineConfig{
			Workers:        3,
			MaxAttempts:    3,
			RetryBackoff:   "30s",
			BackoffCap:     "10m",
			StaleTimeout:   "10m",
			ReaperInterval: "1m",
			JobRetention:   "24h",
			RescanInterval: "30m",
		},
		Scoring: ScoringConfig{
			MacroBlend:            0.3,
			NotifyThreshold:       75,
			StrongThreshold:       85,
			NotificationRetention: "720h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies STOCKS_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if engine := os.Getenv("STOCKS_STORAGE_ENGINE"); engine != "" {
		config.Storage.Engine = engine
	}

	if path := os.Getenv("STOCKS_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if addr := os.Getenv("STOCKS_SURREALDB_ADDRESS"); addr != "" {
		config.Storage.SurrealDB.Address = addr
	}

	if v := os.Getenv("STOCKS_FACTS_BASE_URL"); v != "" {
		config.Clients.Facts.BaseURL = v
	}
	if v := os.Getenv("STOCKS_FACTS_API_KEY"); v != "" {
		config.Clients.Facts.APIKey = v
	}
	if v := os.Getenv("STOCKS_WEBHOOK_URL"); v != "" {
		config.Clients.Webhook.URL = v
	}

	if v := os.Getenv("STOCKS_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Pipeline.Workers = n
		}
	}

	if v := os.Getenv("STOCKS_NOTIFY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scoring.NotifyThreshold = n
		}
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
