package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/telemetry"
)

type StatsSource interface {
	GetStats(ctx context.Context) (*domain.RequestStats, error)
}

// StatsReporter periodically snapshots per-status counts into the
// help_requests gauge and the log.
type StatsReporter struct {
	stats    StatsSource
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewStatsReporter(stats StatsSource, metrics *telemetry.Metrics, logger *slog.Logger, interval time.Duration) *StatsReporter {
	return &StatsReporter{
		stats:    stats,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		timeout:  interval / 2,
	}
}

// Run reports once immediately, then on every tick until ctx is done.
func (w *StatsReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.report(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.report(ctx)
		}
	}
}

func (w *StatsReporter) report(ctx context.Context) {
	const op = "workers.StatsReporter.report"

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	stats, err := w.stats.GetStats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.logger.Warn("stats snapshot failed", slog.String("op", op), slog.Any("error", err))
		return
	}

	w.metrics.SetStatusCounts(*stats)
	w.logger.Debug("stats snapshot",
		slog.Int64("total", stats.Total),
		slog.Int64("active", stats.Active),
		slog.Int64("in_progress", stats.InProgress),
		slog.Int64("completed", stats.Completed),
		slog.Int64("cancelled", stats.Cancelled),
	)
}
