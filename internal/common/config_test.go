package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, "badger", config.Storage.Engine)
	assert.Equal(t, 3, config.Pipeline.GetWorkers())
	assert.Equal(t, 3, config.Pipeline.GetMaxAttempts())
	assert.Equal(t, 30*time.Second, config.Pipeline.GetRetryBackoff())
	assert.Equal(t, 10*time.Minute, config.Pipeline.GetBackoffCap())
	assert.Equal(t, 10*time.Minute, config.Pipeline.GetStaleTimeout())
	assert.Equal(t, 75, config.Scoring.GetNotifyThreshold())
	assert.Equal(t, 85, config.Scoring.GetStrongThreshold())
	assert.InDelta(t, 0.3, config.Scoring.GetMacroBlend(), 0.001)
	assert.False(t, config.IsProduction())
}

func TestLoadConfigFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signal.toml")
	content := `
environment = "production"

[server]
port = 9000

[storage]
engine = "surrealdb"

[clients.facts]
base_url = "https://facts.example.com"
api_key = "secret"
rate_limit = 5

[pipeline]
workers = 8
retry_backoff = "1m"

[scoring]
notify_threshold = 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "surrealdb", config.Storage.Engine)
	assert.Equal(t, "https://facts.example.com", config.Clients.Facts.BaseURL)
	assert.Equal(t, 8, config.Pipeline.GetWorkers())
	assert.Equal(t, time.Minute, config.Pipeline.GetRetryBackoff())
	assert.Equal(t, 60, config.Scoring.GetNotifyThreshold())

	// Unset values keep their defaults.
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 3, config.Pipeline.GetMaxAttempts())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8090, config.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOCKS_ENV", "production")
	t.Setenv("STOCKS_PORT", "7777")
	t.Setenv("STOCKS_STORAGE_ENGINE", "surrealdb")
	t.Setenv("STOCKS_FACTS_BASE_URL", "https://override.example.com")
	t.Setenv("STOCKS_WORKERS", "12")
	t.Setenv("STOCKS_NOTIFY_THRESHOLD", "50")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "surrealdb", config.Storage.Engine)
	assert.Equal(t, "https://override.example.com", config.Clients.Facts.BaseURL)
	assert.Equal(t, 12, config.Pipeline.GetWorkers())
	assert.Equal(t, 50, config.Scoring.GetNotifyThreshold())
}

func TestDurationGettersFallBackOnGarbage(t *testing.T) {
	p := PipelineConfig{RetryBackoff: "not a duration", StaleTimeout: ""}
	assert.Equal(t, 30*time.Second, p.GetRetryBackoff())
	assert.Equal(t, 10*time.Minute, p.GetStaleTimeout())

	s := ScoringConfig{NotificationRetention: "garbage"}
	assert.Equal(t, 30*24*time.Hour, s.GetNotificationRetention())

	// Retention shorter than a dedup day bucket makes no sense.
	s = ScoringConfig{NotificationRetention: "1h"}
	assert.Equal(t, 30*24*time.Hour, s.GetNotificationRetention())

	s = ScoringConfig{NotificationRetention: "168h"}
	assert.Equal(t, 7*24*time.Hour, s.GetNotificationRetention())
}

func TestStrongThresholdNeverBelowNotify(t *testing.T) {
	s := ScoringConfig{NotifyThreshold: 90, StrongThreshold: 80}
	assert.Equal(t, 90, s.GetStrongThreshold())
}

func TestMacroBlendClampsInvalid(t *testing.T) {
	s := ScoringConfig{MacroBlend: 1.5}
	assert.InDelta(t, 0.3, s.GetMacroBlend(), 0.001)

	s = ScoringConfig{MacroBlend: -0.2}
	assert.InDelta(t, 0.3, s.GetMacroBlend(), 0.001)
}
