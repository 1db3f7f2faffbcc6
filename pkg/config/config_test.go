package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 3001, c.Server.Port)
	assert.Equal(t, []string{"*"}, c.Server.AllowOrigins)
	assert.Equal(t, 5*time.Second, c.Scheduler.IngestInterval)
	assert.Equal(t, 30*time.Second, c.Scheduler.IndicatorInterval)
	assert.Equal(t, 60*time.Second, c.Scheduler.PredictionInterval)
	assert.Equal(t, 30*time.Second, c.Scheduler.ValidationInterval)
	assert.True(t, c.Scheduler.RunOnStart)
	assert.Equal(t, "none", c.Archive.Backend)
	assert.Equal(t, 100*time.Millisecond, c.Pipeline.RetryBackoff)
	assert.Equal(t, "marketpulse.bars", c.Kafka.Topics.Bars)
	assert.Nil(t, c.Store.Strict)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	p := writeFile(t, "c.yaml", `
environment: production
server:
  port: 9090
scheduler:
  run_on_start: false
  ingest_interval: 1s
archive:
  backend: clickhouse
assets:
  - { symbol: ETHUSD, class: crypto }
store:
  strict: true
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.False(t, c.Scheduler.RunOnStart)
	assert.Equal(t, time.Second, c.Scheduler.IngestInterval)
	assert.Equal(t, 30*time.Second, c.Scheduler.IndicatorInterval)
	assert.Equal(t, "clickhouse", c.Archive.Backend)
	require.Len(t, c.Assets, 1)
	assert.Equal(t, "ETHUSD", c.Assets[0].Symbol)
	require.NotNil(t, c.Store.Strict)
	assert.True(t, *c.Store.Strict)
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad backend":           "archive:\n  backend: s3\n",
		"kafka without brokers": "archive:\n  backend: kafka\nkafka:\n  brokers: []\n",
		"bad asset class":       "assets:\n  - { symbol: X, class: bond }\n",
		"duplicate asset":       "assets:\n  - { symbol: X, class: stock }\n  - { symbol: x, class: stock }\n",
		"bad log level":         "log:\n  level: loud\n",
		"zero interval":         "scheduler:\n  ingest_interval: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", body))
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestEnvOverrides(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	require.NoError(t, c.applyEnv(envMap(map[string]string{
		"FINANCIAL_API_KEY":     "shared",
		"ALPHA_VANTAGE_API_KEY": "av-key",
		"KAFKA_BROKERS":         "k1:9092, k2:9092,",
		"REDIS_ADDR":            "redis:6379",
		"REDIS_DB":              "3",
		"LOG_LEVEL":             "DEBUG",
		"PORT":                  "8081",
		"ARCHIVE_BACKEND":       "Both",
	})))

	assert.Equal(t, "shared", c.Providers.Yahoo.APIKey)
	assert.Equal(t, "av-key", c.Providers.AlphaVantage.APIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, 3, c.Redis.DB)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 8081, c.Server.Port)
	assert.Equal(t, "both", c.Archive.Backend)
	assert.NoError(t, c.check())

	require.NoError(t, c.applyEnv(envMap(map[string]string{"REDIS_DB": "three"})))
	assert.Equal(t, 3, c.Redis.DB)

	assert.Error(t, c.applyEnv(envMap(map[string]string{"PORT": "eighty"})))
}

func TestLoadWithEnvReadsDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "YAHOO_FINANCE_API_KEY=from-dotenv\n")
	t.Setenv("YAHOO_FINANCE_API_KEY", "")
	require.NoError(t, os.Unsetenv("YAHOO_FINANCE_API_KEY"))

	c, err := LoadWithEnv("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Providers.Yahoo.APIKey)
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Assets, 6)
	assert.Equal(t, "https://query1.finance.yahoo.com", c.Providers.Yahoo.BaseURL)
}
