package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"

	"crisisConnect/internal/domain"
)

// Metrics holds the application's instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequests  metric.Int64Counter
	HTTPDuration  metric.Float64Histogram
	Transitions   metric.Int64Counter
	RequestsGauge metric.Int64ObservableGauge

	counts map[domain.RequestStatus]*atomic.Int64
}

// InitMeterProvider configures an OTLP gRPC metric exporter with a periodic
// reader and installs the global meter provider.
func InitMeterProvider(ctx context.Context, conn *grpc.ClientConn, serviceName, environment string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := newResource(serviceName, environment)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(10*time.Second),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewMetrics creates and registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{counts: make(map[domain.RequestStatus]*atomic.Int64, len(domain.AllStatuses))}
	for _, s := range domain.AllStatuses {
		m.counts[s] = new(atomic.Int64)
	}

	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	m.Transitions, err = meter.Int64Counter(
		"lifecycle_transitions_total",
		metric.WithDescription("Lifecycle operations by event and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transitions counter: %w", err)
	}

	m.RequestsGauge, err = meter.Int64ObservableGauge(
		"help_requests",
		metric.WithDescription("Help requests per status as last seen by the stats reporter"),
		metric.WithUnit("{request}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			for _, s := range domain.AllStatuses {
				o.Observe(m.counts[s].Load(), metric.WithAttributes(attribute.String("status", string(s))))
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests gauge: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordHTTP(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequests.Add(ctx, 1, attrs)
	m.HTTPDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) RecordTransition(ctx context.Context, event, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

// SetStatusCounts replaces the values reported by the requests gauge.
func (m *Metrics) SetStatusCounts(stats domain.RequestStats) {
	if m == nil {
		return
	}
	m.counts[domain.StatusActive].Store(stats.Active)
	m.counts[domain.StatusInProgress].Store(stats.InProgress)
	m.counts[domain.StatusCompleted].Store(stats.Completed)
	m.counts[domain.StatusCancelled].Store(stats.Cancelled)
}

// StatusCount returns the last value stored for status.
func (m *Metrics) StatusCount(status domain.RequestStatus) int64 {
	if m == nil || m.counts[status] == nil {
		return 0
	}
	return m.counts[status].Load()
}
