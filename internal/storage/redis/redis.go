package redis

import (
	"context"
	"fmt"
	"log/slog"

	"crisisConnect/internal/config"
	"crisisConnect/internal/storage"

	goredis "github.com/redis/go-redis/v9"
)

type Redis struct {
	Client   *goredis.Client
	Requests *RequestStore
}

func NewRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := storage.ConnectWithRetry(ctx, logger, "redis", cfg.Store.ConnectRetries, cfg.Store.ConnectTimeout, ping); err != nil {
		logger.Error("Failed to ping Redis", slog.String("error", err.Error()))
		if err := rdb.Close(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Connected to Redis successfully", slog.String("addr", cfg.Redis.Addr))

	return &Redis{
		Client:   rdb,
		Requests: NewRequestStore(rdb, cfg.Redis.KeyPrefix, logger),
	}, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
