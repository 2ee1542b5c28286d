package artifacts

import (
	"context"
	"fmt"

	"depression-risk-service/internal/common/config"
	"depression-risk-service/internal/common/database"
	"depression-risk-service/internal/common/logger"
)

// remoteConcurrency bounds parallel fetches against Postgres and Redis.
var remoteConcurrency = len(Names)

// Open builds the Source selected by cfg. The returned close function
// releases any connection the source opened and is never nil.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Source, int, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Artifacts.Source {
	case config.ArtifactSourceDir:
		return NewDirSource(cfg.Artifacts.Path), 1, noop, nil

	case config.ArtifactSourcePostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, 0, noop, err
		}
		if err := pg.Ping(ctx); err != nil {
			_ = pg.Close()
			return nil, 0, noop, fmt.Errorf("postgres ping failed: %w", err)
		}
		log.Info("artifact source connected", map[string]interface{}{
			"source": "postgres",
			"host":   cfg.Database.Postgres.Host,
		})
		return NewPostgresSource(pg, cfg.Artifacts.Bundle), remoteConcurrency, pg.Close, nil

	case config.ArtifactSourceRedis:
		rc, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, 0, noop, err
		}
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, 0, noop, err
		}
		log.Info("artifact source connected", map[string]interface{}{
			"source":  "redis",
			"address": cfg.Database.Redis.Address,
		})
		return NewRedisSource(rc, cfg.Artifacts.RedisPrefix, cfg.Artifacts.Bundle), remoteConcurrency, rc.Close, nil

	default:
		return nil, 0, noop, fmt.Errorf("unknown artifact source %q", cfg.Artifacts.Source)
	}
}

// LoadFromConfig opens the configured source, loads the bundle and closes
// the source again. Artifacts are immutable once loaded so no connection is
// kept.
func LoadFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Artifacts.LoadTimeout))
	defer cancel()

	src, concurrency, closeFn, err := Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil {
			log.Warn("failed to close artifact source", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	return Load(ctx, src, LoadOptions{
		Bundle:      cfg.Artifacts.Bundle,
		Concurrency: concurrency,
		Logger:      log,
	})
}
