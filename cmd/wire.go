package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/okian/diarycal/internal/adapters/labelstore"
	"github.com/okian/diarycal/internal/adapters/repository"
	app "github.com/okian/diarycal/internal/app"
	"github.com/okian/diarycal/internal/config"
	"github.com/okian/diarycal/internal/domain/calibration"
	"github.com/okian/diarycal/internal/domain/label"
	"github.com/okian/diarycal/internal/domain/selection"
	"github.com/okian/diarycal/pkg/logger"
)

// openProfiles builds the configured profile store, wrapped in the redis
// read-through cache when redis_addr is set.
func (c *cli) openProfiles(ctx context.Context) (repository.Store, error) {
	var store repository.Store
	switch c.cfg.ProfileStore {
	case config.BackendMemory:
		store = repository.NewMemoryStore()
	case config.BackendFile:
		fs, err := repository.OpenFileStore(c.cfg.ProfileFile)
		if err != nil {
			return nil, err
		}
		store = fs
	case config.BackendPostgres:
		db, err := c.postgres(ctx)
		if err != nil {
			return nil, err
		}
		pg := repository.NewPostgresStore(db, repository.WithQueryTimeout(c.cfg.PGQueryTimeout()))
		if c.ensureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		store = pg
	default:
		return nil, fmt.Errorf("%w: unknown profile_store %q", config.ErrInvalidConfig, c.cfg.ProfileStore)
	}

	if c.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.cfg.RedisAddr, DB: c.cfg.RedisDB})
		c.closers = append(c.closers, client.Close)
		store = repository.NewCachedStore(store, client,
			repository.WithTTL(c.cfg.ProfileCacheTTL()),
			repository.WithCacheLogger(logger.Get().Named("profile_cache")),
		)
		c.log.Debug(ctx, "profile cache enabled", logger.String("redis_addr", c.cfg.RedisAddr), logger.Duration("ttl", c.cfg.ProfileCacheTTL()))
	}
	return store, nil
}

func (c *cli) openLabels(ctx context.Context) (labelstore.Store, error) {
	switch c.cfg.LabelStore {
	case config.BackendMemory:
		return labelstore.NewMemoryStore(), nil
	case config.BackendJSONL:
		return labelstore.NewJSONLStore(c.cfg.LabelFile), nil
	case config.BackendPostgres:
		db, err := c.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return labelstore.NewPostgresStore(db,
			labelstore.WithPageSize(c.cfg.PageSize),
			labelstore.WithQueryTimeout(c.cfg.PGQueryTimeout()),
		), nil
	default:
		return nil, fmt.Errorf("%w: unknown label_store %q", config.ErrInvalidConfig, c.cfg.LabelStore)
	}
}

// postgres opens one pool shared by the profile and label stores.
func (c *cli) postgres(ctx context.Context) (*sqlx.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := sqlx.Open("postgres", c.cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", repository.ErrStore, err)
	}
	db.SetMaxOpenConns(c.cfg.PGMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.PGQueryTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", repository.ErrStore, err)
	}

	c.db = db
	c.closers = append(c.closers, db.Close)
	return db, nil
}

func (c *cli) selectionConfig() selection.Config {
	return selection.Config{
		Method: selection.MethodAuto,
		Platt: calibration.PlattConfig{
			LearningRate: c.cfg.PlattLearningRate,
			Iterations:   c.cfg.PlattIterations,
			L2Penalty:    c.cfg.PlattL2Penalty,
		},
		Isotonic:       calibration.IsotonicConfig{Bins: c.cfg.IsotonicBins},
		ECEBins:        c.cfg.ECEBins,
		IsotonicMargin: c.cfg.IsotonicMargin,
		MinSamples:     c.cfg.MinTrainSamples,
	}
}

func (c *cli) serviceOptions() []app.Option {
	return []app.Option{
		app.WithSelectionConfig(c.selectionConfig()),
		app.WithThresholds(label.Thresholds{
			PositiveRating: c.cfg.PositiveRating,
			SignalMargin:   c.cfg.SignalMargin,
			EntropyCeiling: c.cfg.EntropyCeiling,
		}),
		app.WithMinSamples(c.cfg.MinSamples),
		app.WithWorkerCount(c.cfg.WorkerCount),
		app.WithQueueSize(c.cfg.QueueSize),
		app.WithDedupeSize(c.cfg.DedupeSize),
		app.WithLogger(logger.Get().Named("service")),
	}
}
