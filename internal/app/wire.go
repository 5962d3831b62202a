package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "github.com/alanyoungcy/arbbot/internal/blob/s3"
	"github.com/alanyoungcy/arbbot/internal/cache/memory"
	"github.com/alanyoungcy/arbbot/internal/cache/redis"
	"github.com/alanyoungcy/arbbot/internal/config"
	"github.com/alanyoungcy/arbbot/internal/crypto"
	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/alanyoungcy/arbbot/internal/notify"
	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
	"github.com/alanyoungcy/arbbot/internal/store/file"
	"github.com/alanyoungcy/arbbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the operating modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	PositionStore domain.PositionStore
	TradeStore    domain.TradeStore

	// Caches and coordination
	QuoteCache  domain.QuoteCache
	LockManager domain.LockManager // nil without Redis
	SignalBus   domain.SignalBus   // nil without Redis
	RateLimiter domain.RateLimiter // nil without Redis

	// Venue clients and adapters
	PolymarketClient *polymarket.ClobClient
	PolymarketVenue  *polymarket.Adapter
	KalshiClient     *kalshi.Client
	KalshiVenue      *kalshi.Adapter

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}
	trading := cfg.Mode == "arbitrage"

	// --- Stores: Postgres when a DSN is configured, file fallback otherwise ---
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
	} else {
		positions, err := file.NewPositionStore(cfg.Ledger.SnapshotPath)
		if err != nil {
			return fail(fmt.Errorf("wire: position snapshot: %w", err))
		}
		deps.PositionStore = positions

		tradePath := cfg.Ledger.SnapshotPath + ".trades.jsonl"
		trades, err := file.NewTradeStore(tradePath)
		if err != nil {
			return fail(fmt.Errorf("wire: trade log: %w", err))
		}
		deps.TradeStore = trades
	}

	// --- Quote cache and coordination: Redis when enabled, in-memory otherwise ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	} else {
		deps.QuoteCache = memory.NewQuoteCache()
		deps.LockManager = memory.NewLockManager()
	}

	// --- Polymarket CLOB client ---
	var signer *crypto.Signer
	if trading {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: wallet key: %w", err))
		}
		signer, err = crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			return fail(fmt.Errorf("wire: order signer: %w", err))
		}
	}

	var hmacAuth *crypto.HMACAuth
	if cfg.Polymarket.ApiKey != "" {
		hmacAuth = &crypto.HMACAuth{
			Key:        cfg.Polymarket.ApiKey,
			Secret:     cfg.Polymarket.ApiSecret,
			Passphrase: cfg.Polymarket.ApiPassphrase,
		}
	}

	deps.PolymarketClient = polymarket.NewClobClient(
		cfg.Polymarket.ClobHost, signer, hmacAuth, cfg.Polymarket.SignatureType,
	)
	deps.PolymarketClient.SetFunder(cfg.Wallet.SafeAddress)
	if trading && hmacAuth == nil {
		// No static L2 credentials; derive them from the wallet signature.
		if err := deps.PolymarketClient.DeriveAPIKey(ctx); err != nil {
			return fail(fmt.Errorf("wire: derive polymarket api key: %w", err))
		}
	}
	deps.PolymarketVenue = polymarket.NewAdapter(deps.PolymarketClient, logger)

	// --- Kalshi client ---
	deps.KalshiClient = kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey)
	if trading {
		pem, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			return fail(fmt.Errorf("wire: kalshi rsa key: %w", err))
		}
		if err := deps.KalshiClient.SetRSAPrivateKey(pem); err != nil {
			return fail(fmt.Errorf("wire: kalshi rsa key: %w", err))
		}
	}
	deps.KalshiVenue = kalshi.NewAdapter(deps.KalshiClient, logger)

	// --- S3 archiving ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.TradeStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
