package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"crisisConnect/internal/api"
	"crisisConnect/internal/config"
	"crisisConnect/internal/service"
	"crisisConnect/internal/storage/memory"
	"crisisConnect/internal/storage/postgres"
	"crisisConnect/internal/storage/redis"
	"crisisConnect/internal/telemetry"
	"crisisConnect/internal/workers"
	"crisisConnect/pkg/logger"
)

type Components struct {
	logger        *slog.Logger
	HttpServer    *api.Server
	StatsReporter *workers.StatsReporter
	Telemetry     *telemetry.Providers
	Postgres      *postgres.Postgres
	Redis         *redis.Redis
}

func InitComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Components, error) {
	c := &Components{logger: log}

	log.Info("Initializing telemetry", slog.Bool("enabled", cfg.Telemetry.Enabled))
	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	c.Telemetry = tp
	if tp.Logger != nil {
		log = logger.Tee(log, tp.Logger)
		c.logger = log
	}

	store, err := c.initStore(ctx, cfg, log)
	if err != nil {
		c.ShutdownAll()
		return nil, err
	}

	requestSvc := service.NewRequestService(store, log, tp.Metrics)
	nearbySvc := service.NewNearbyService(store, log, cfg.Nearby.DefaultRadiusKM)
	statsSvc := service.NewStatsService(store)

	srv := service.NewService(requestSvc, nearbySvc, statsSvc)

	c.HttpServer = api.NewServer(ctx, cfg, log, srv, store, tp.Metrics)
	c.StatsReporter = workers.NewStatsReporter(srv, tp.Metrics, log, cfg.StatsEvery)
	log.Info("Initialized server")

	return c, nil
}

func (c *Components) initStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.RequestStore, error) {
	log.Info("Initializing store", slog.String("driver", cfg.Store.Driver))

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := postgres.NewPostgres(ctx, cfg, log)
		if err != nil {
			log.Error("Failed to init postgres", slog.Any("error", err))
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		c.Postgres = pg
		return pg.Requests, nil

	case config.DriverRedis:
		rdb, err := redis.NewRedis(ctx, cfg, log)
		if err != nil {
			log.Error("Failed to init redis", slog.Any("error", err))
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		c.Redis = rdb
		return rdb.Requests, nil

	default:
		log.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Завершение работы компонентов началось")

	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.Any("error", err))
		}
	}
	if c.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Telemetry.Shutdown(ctx); err != nil {
			c.logger.Error("Telemetry shutdown failed", slog.Any("error", err))
		}
	}

	c.logger.Info("Все компоненты успешно завершили работу",
		slog.Duration("latency", time.Since(start)))
}
