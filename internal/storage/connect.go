// Package storage holds what the store drivers share.
package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ConnectWithRetry pings a freshly opened store with exponential backoff.
// Each attempt is bounded by timeout; at most retries attempts follow the first.
func ConnectWithRetry(ctx context.Context, logger *slog.Logger, name string, retries uint64, timeout time.Duration, ping func(ctx context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second

	attempt := func() error {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ping(pctx)
	}

	return backoff.RetryNotify(attempt, backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx),
		func(err error, wait time.Duration) {
			logger.Warn("store not reachable yet, retrying",
				slog.String("store", name),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		})
}
