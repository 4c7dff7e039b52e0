package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"crisisConnect/internal/components"
	"crisisConnect/internal/config"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", slog.Any("error", err))
		return err
	}
	logger := components.SetupLogger(cfg.Env)
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is empty; admin routes will reject every call")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := components.InitComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not init components", slog.Any("error", err))
		return err
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := comps.HttpServer.Run(ctx); err != nil {
			logger.Error("http server failed", slog.Any("error", err))
			errChan <- err
			stop()
		}
		logger.Info("http server stopped")
	}()
	go func() {
		defer wg.Done()
		comps.StatsReporter.Run(ctx)
		logger.Info("stats reporter stopped")
	}()

	<-ctx.Done()
	logger.Info("initiating shutdown", slog.String("reason", context.Cause(ctx).Error()))

	wg.Wait()

	logger.Info("shutting down the services...")
	comps.ShutdownAll()
	logger.Info("gracefully shutting down the servers")

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
