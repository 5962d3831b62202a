// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBBOT_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Trading    TradingConfig    `toml:"trading"`
	Pairs      []PairConfig     `toml:"pairs"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials used to sign Polymarket
// orders.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	SafeAddress      string `toml:"safe_address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints, chain parameters, and
// CLOB L2 credentials.
type PolymarketConfig struct {
	ClobHost      string `toml:"clob_host"`
	GammaHost     string `toml:"gamma_host"`
	WsHost        string `toml:"ws_host"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// KalshiConfig holds Kalshi exchange API credentials and endpoints.
type KalshiConfig struct {
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
	WsURL             string `toml:"ws_url"`
}

// TradingConfig holds the thresholds and timing knobs for opportunity
// detection and execution.
type TradingConfig struct {
	// MinProfitRate is the minimum net profit per dollar of cost for an
	// entry to qualify (0.01 = 1%).
	MinProfitRate float64 `toml:"min_profit_rate"`
	// MinExitProfitRate gates early unwinds of open positions.
	MinExitProfitRate float64 `toml:"min_exit_profit_rate"`
	// CapitalPerTrade is the dollar budget used to size each entry.
	CapitalPerTrade float64 `toml:"capital_per_trade"`
	// MinSpread is the minimum Polymarket bid-ask spread for maker mode
	// to be worth the queue risk.
	MinSpread float64 `toml:"min_spread"`
	// MakerTimeout bounds how long a resting maker order waits for fills
	// before being cancelled.
	MakerTimeout duration `toml:"maker_timeout"`
	// PollInterval is the delay between maker order status checks.
	PollInterval duration `toml:"poll_interval"`
	// CycleInterval is the minimum delay between detection cycles.
	CycleInterval duration `toml:"cycle_interval"`
	// QuoteMaxAge rejects quotes older than this at detection time.
	QuoteMaxAge duration `toml:"quote_max_age"`
	// MaxOpenPositions caps concurrent open arbitrage positions.
	MaxOpenPositions int `toml:"max_open_positions"`
}

// PairConfig maps one binary outcome across both venues.
type PairConfig struct {
	EventID           string `toml:"event_id"`
	Outcome           string `toml:"outcome"`
	PolymarketTokenID string `toml:"polymarket_token_id"`
	KalshiTicker      string `toml:"kalshi_ticker"`
}

// LedgerConfig holds position ledger persistence parameters. When the
// Postgres DSN is empty the ledger falls back to a JSON snapshot file.
type LedgerConfig struct {
	SnapshotPath string `toml:"snapshot_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for trade
// history archiving.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	RetentionDays   int      `toml:"retention_days"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP status server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"` // empty disables auth
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"` // requests/minute per client; 0 disables
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:      "https://clob.polymarket.com",
			GammaHost:     "https://gamma-api.polymarket.com",
			WsHost:        "wss://ws-subscriptions-clob.polymarket.com",
			ChainID:       137,
			SignatureType: 2,
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			WsURL:   "wss://api.elections.kalshi.com/trade-api/ws/v2",
		},
		Trading: TradingConfig{
			MinProfitRate:     0.01,
			MinExitProfitRate: 0.005,
			CapitalPerTrade:   100.0,
			MinSpread:         0.02,
			MakerTimeout:      duration{5 * time.Minute},
			PollInterval:      duration{2 * time.Second},
			CycleInterval:     duration{3 * time.Second},
			QuoteMaxAge:       duration{15 * time.Second},
			MaxOpenPositions:  10,
		},
		Ledger: LedgerConfig{
			SnapshotPath: "data/positions.json",
		},
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "arbbot-data",
			UseSSL:          false,
			ForcePathStyle:  true,
			RetentionDays:   90,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "panic_unwind", "position_opened", "position_closed", "ledger_persist_failed"},
		},
		Mode:     "arbitrage",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"arbitrage": true,
	"monitor":   true,
	"server":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: arbitrage, monitor, server)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	trading := c.Mode == "arbitrage"

	// Wallet — needed to sign Polymarket orders in trading mode.
	if trading {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType != 1 && c.Polymarket.SignatureType != 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 1 (EOA) or 2 (Safe), got %d", c.Polymarket.SignatureType))
	}

	// Polymarket L2 credentials — all three set together, or all empty.
	pk := c.Polymarket.ApiKey != ""
	ps := c.Polymarket.ApiSecret != ""
	pp := c.Polymarket.ApiPassphrase != ""
	if pk || ps || pp {
		if !(pk && ps && pp) {
			errs = append(errs, "polymarket: api_key, api_secret, and api_passphrase must all be set together")
		}
	}

	// Kalshi — credentials required for trading.
	if trading {
		if c.Kalshi.ApiKey == "" {
			errs = append(errs, "kalshi: api_key is required for mode "+c.Mode)
		}
		if c.Kalshi.RsaPrivateKeyPath == "" {
			errs = append(errs, "kalshi: rsa_private_key_path is required for mode "+c.Mode)
		}
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}

	// Trading thresholds
	if c.Trading.MinProfitRate <= 0 {
		errs = append(errs, "trading: min_profit_rate must be > 0")
	}
	if c.Trading.MinExitProfitRate < 0 {
		errs = append(errs, "trading: min_exit_profit_rate must be >= 0")
	}
	if c.Trading.CapitalPerTrade <= 0 {
		errs = append(errs, "trading: capital_per_trade must be > 0")
	}
	if c.Trading.MinSpread < 0 || c.Trading.MinSpread >= 1 {
		errs = append(errs, fmt.Sprintf("trading: min_spread must be in [0,1), got %v", c.Trading.MinSpread))
	}
	if c.Trading.MakerTimeout.Duration <= 0 {
		errs = append(errs, "trading: maker_timeout must be > 0")
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be > 0")
	}
	if c.Trading.PollInterval.Duration > c.Trading.MakerTimeout.Duration {
		errs = append(errs, "trading: poll_interval must not exceed maker_timeout")
	}
	if c.Trading.MaxOpenPositions < 1 {
		errs = append(errs, "trading: max_open_positions must be >= 1")
	}

	// Pairs
	seen := make(map[string]bool, len(c.Pairs))
	for i, p := range c.Pairs {
		if p.EventID == "" || p.Outcome == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d]: event_id and outcome must not be empty", i))
			continue
		}
		if p.PolymarketTokenID == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d] (%s:%s): polymarket_token_id must not be empty", i, p.EventID, p.Outcome))
		}
		if p.KalshiTicker == "" {
			errs = append(errs, fmt.Sprintf("pairs[%d] (%s:%s): kalshi_ticker must not be empty", i, p.EventID, p.Outcome))
		}
		key := p.EventID + ":" + p.Outcome
		if seen[key] {
			errs = append(errs, fmt.Sprintf("pairs[%d]: duplicate pair %s", i, key))
		}
		seen[key] = true
	}

	// Ledger — need either a DSN or a snapshot path.
	if strings.TrimSpace(c.Postgres.DSN) == "" && c.Ledger.SnapshotPath == "" {
		errs = append(errs, "ledger: snapshot_path must be set when postgres.dsn is empty")
	}

	// Postgres pool bounds apply whenever a DSN is configured.
	if strings.TrimSpace(c.Postgres.DSN) != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
