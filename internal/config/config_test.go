package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() Config {
	cfg := Defaults()
	cfg.Mode = "arbitrage"
	cfg.Wallet.PrivateKey = "0xabc"
	cfg.Kalshi.ApiKey = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = "/tmp/kalshi.pem"
	cfg.Pairs = []PairConfig{
		{EventID: "fed-march", Outcome: "hike", PolymarketTokenID: "123", KalshiTicker: "FED-24MAR-HIKE"},
	}
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validTestConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := validTestConfig()
	cfg.Mode = "yolo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRequiresWalletForTrading(t *testing.T) {
	cfg := validTestConfig()
	cfg.Wallet.PrivateKey = ""
	cfg.Wallet.EncryptedKeyPath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestValidateMonitorModeSkipsCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := validTestConfig()
	cfg.Trading.MinProfitRate = -1
	cfg.Trading.CapitalPerTrade = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_profit_rate")
	assert.Contains(t, err.Error(), "capital_per_trade")
}

func TestValidateRejectsDuplicatePairs(t *testing.T) {
	cfg := validTestConfig()
	cfg.Pairs = append(cfg.Pairs, cfg.Pairs[0])
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate pair")
}

func TestValidateRejectsPollIntervalAboveTimeout(t *testing.T) {
	cfg := validTestConfig()
	cfg.Trading.PollInterval = duration{time.Minute}
	cfg.Trading.MakerTimeout = duration{time.Second}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "monitor"
log_level = "debug"

[trading]
min_profit_rate = 0.02
maker_timeout = "90s"

[[pairs]]
event_id = "fed-march"
outcome = "hike"
polymarket_token_id = "123"
kalshi_ticker = "FED-24MAR-HIKE"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.02, cfg.Trading.MinProfitRate)
	assert.Equal(t, 90*time.Second, cfg.Trading.MakerTimeout.Duration)
	// Untouched defaults survive the merge.
	assert.Equal(t, 100.0, cfg.Trading.CapitalPerTrade)
	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "FED-24MAR-HIKE", cfg.Pairs[0].KalshiTicker)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "monitor"`), 0o600))

	t.Setenv("ARBBOT_LOG_LEVEL", "warn")
	t.Setenv("ARBBOT_TRADING_CAPITAL_PER_TRADE", "250.5")
	t.Setenv("ARBBOT_TRADING_POLL_INTERVAL", "500ms")
	t.Setenv("ARBBOT_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 250.5, cfg.Trading.CapitalPerTrade)
	assert.Equal(t, 500*time.Millisecond, cfg.Trading.PollInterval.Duration)
	assert.True(t, cfg.Redis.Enabled)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validTestConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Kalshi.ApiKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	// Non-secrets pass through.
	assert.Equal(t, cfg.Kalshi.BaseURL, red.Kalshi.BaseURL)
}
