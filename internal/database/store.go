package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
)

const redisClientName = "graha-cbt"

// OpenStore connects the storage backend selected by STORAGE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.StorageSQLite:
		store, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("SQLite ready")
		return store, nil

	case config.StoragePostgres:
		pool, err := openPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(pool), nil

	case config.StorageRedis:
		rdb, err := openRedis(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisStore(rdb), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// openPostgres connects the pool and refuses to start against a database
// that has not been migrated.
func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxDBConns
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	var students *string
	if err := pool.QueryRow(ctx, `SELECT to_regclass('public.students')::text`).Scan(&students); err != nil {
		pool.Close()
		return nil, fmt.Errorf("check schema: %w", err)
	}
	if students == nil {
		pool.Close()
		return nil, fmt.Errorf("students table missing, run `migrate up` first")
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", cfg.MaxDBConns).
		Msg("PostgreSQL ready")

	return pool, nil
}

func openRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	opt.ClientName = redisClientName

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("students_key", config.StorageKey.Students).
		Msg("Redis ready")

	return rdb, nil
}
