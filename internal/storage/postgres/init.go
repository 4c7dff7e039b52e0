package postgres

import (
	"context"
	"log/slog"

	"crisisConnect/internal/config"
	"crisisConnect/internal/storage"
	"crisisConnect/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	Pool     *pgxpool.Pool
	Requests *RequestStore
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	logger.Info("Connecting to Postgres",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("db", cfg.Postgres.Database),
	)

	configNew, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	configNew.MaxConns = cfg.Postgres.MaxConns
	configNew.MinConns = cfg.Postgres.MinConns
	configNew.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, configNew)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	logger.Info("Pinging Postgres database")
	err = storage.ConnectWithRetry(ctx, logger, "postgres", cfg.Store.ConnectRetries, cfg.Store.ConnectTimeout, pool.Ping)
	if err != nil {
		logger.Error("Failed to ping Postgres database", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres successfully")

	if cfg.Postgres.AutoMigrate {
		if err := Migrate(ctx, pool); err != nil {
			logger.Error("Failed to apply schema", slog.String("error", err.Error()))
			pool.Close()
			return nil, e.Wrap("storage.pg.NewPostgres.Migrate", err)
		}
		logger.Info("Postgres schema is up to date")
	}

	return &Postgres{
		Pool:     pool,
		Requests: NewRequestStore(pool, logger),
	}, nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}
