// Package telemetry wires OpenTelemetry traces, metrics and logs.
package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

type Config struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
	Environment  string
}

// Providers owns the exporters started by Setup.
type Providers struct {
	Metrics *Metrics
	// Logger is non-nil only when export is enabled.
	Logger *slog.Logger

	conn *grpc.ClientConn
	tp   *sdktrace.TracerProvider
	mp   *sdkmetric.MeterProvider
	lp   *sdklog.LoggerProvider
}

// Setup starts the OTLP exporters when cfg.Enabled. Otherwise instruments are
// bound to the global no-op providers.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	p := &Providers{}

	if cfg.Enabled {
		conn, err := newConn(cfg.OTLPEndpoint)
		if err != nil {
			return nil, err
		}
		p.conn = conn

		if p.tp, err = InitTracerProvider(ctx, conn, cfg.ServiceName, cfg.Environment); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
		if p.mp, err = InitMeterProvider(ctx, conn, cfg.ServiceName, cfg.Environment); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
		if p.lp, p.Logger, err = InitLoggerProvider(ctx, conn, cfg.ServiceName, cfg.Environment); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}

	m, err := NewMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	p.Metrics = m

	return p, nil
}

// Shutdown flushes and stops every started provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.lp != nil {
		errs = append(errs, p.lp.Shutdown(ctx))
	}
	if p.mp != nil {
		errs = append(errs, p.mp.Shutdown(ctx))
	}
	if p.tp != nil {
		errs = append(errs, p.tp.Shutdown(ctx))
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}
