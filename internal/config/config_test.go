package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("HF_API_KEY", "hf_test")
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "hf_test", cfg.Inference.APIKey)
	assert.Equal(t, 20*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 150, cfg.Inference.MaxNewTokens)
	assert.InDelta(t, 0.5, cfg.Inference.Temperature, 1e-9)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "users.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, "Asia/Baku", cfg.Timezone.Location)
	assert.Equal(t, 8, cfg.Bot.Workers)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "@every 5m", cfg.Monitoring.ReportSchedule)
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("REDIS_HOST", "cache.local")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
inference:
  timeout: 5s
  max_new_tokens: 64
storage:
  type: redis
quotes:
  path: /srv/quotes.json
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 64, cfg.Inference.MaxNewTokens)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "/srv/quotes.json", cfg.Quotes.Path)
	assert.Equal(t, "cache.local:6379", cfg.Storage.Redis.Addr)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("HF_API_KEY", "hf_test")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "bot token is required")

	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("HF_API_KEY", "")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "api key is required")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Bot:       BotConfig{Token: "t", Workers: 2},
			Inference: InferenceConfig{URL: "http://x", APIKey: "k", Timeout: time.Second},
			Storage:   StorageConfig{Type: "sqlite"},
			Timezone:  TimezoneConfig{Location: "Asia/Baku"},
		}
	}

	require.NoError(t, validateConfig(valid()))

	cfg := valid()
	cfg.Storage.Type = "mongo"
	assert.ErrorContains(t, validateConfig(cfg), "unsupported storage type")

	cfg = valid()
	cfg.Storage.Type = "postgres"
	assert.ErrorContains(t, validateConfig(cfg), "dsn")

	cfg = valid()
	cfg.Inference.Timeout = 0
	assert.ErrorContains(t, validateConfig(cfg), "timeout")

	cfg = valid()
	cfg.Timezone.Location = "Mars/Olympus"
	assert.ErrorContains(t, validateConfig(cfg), "invalid timezone")

	cfg = valid()
	cfg.Bot.Workers = 0
	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, 1, cfg.Bot.Workers)
}
