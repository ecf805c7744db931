package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/snipebot/internal/blob/s3"
	"github.com/alanyoungcy/snipebot/internal/cache/redis"
	"github.com/alanyoungcy/snipebot/internal/config"
	"github.com/alanyoungcy/snipebot/internal/domain"
	"github.com/alanyoungcy/snipebot/internal/notify"
	"github.com/alanyoungcy/snipebot/internal/store/postgres"
)

// Dependencies bundles the shared infrastructure every mode builds on. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// TradeStore is concrete so the archiver can reach DeleteBefore.
	TradeStore *postgres.TradeStore
	PriceCache domain.PriceCache
	Archiver   *s3blob.Archiver
	Notifier   *notify.Notifier
}

// Wire constructs the concrete infrastructure from configuration and returns
// it with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())

	// --- Redis ---
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.PriceCache = redis.NewPriceCache(redisClient)

	// --- Notifications ---
	deps.Notifier = notify.FromConfig(cfg.Notify, logger)

	// --- S3 trade archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, cfg.Archive)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.TradeStore,
			cfg.Archive.RetentionDays,
			cfg.Archive.Interval.Duration,
			logger,
		)
	}

	return deps, cleanup, nil
}
