package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/geo"
	"crisisConnect/pkg/validator"
)

const DefaultRadiusKM = 50.0

type nearbyService struct {
	store           RequestStore
	logger          *slog.Logger
	defaultRadiusKm float64
}

func NewNearbyService(store RequestStore, logger *slog.Logger, defaultRadiusKm float64) NearbyService {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultRadiusKM
	}
	return &nearbyService{
		store:           store,
		logger:          logger,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// Nearby ranks a fresh snapshot of open requests around the helper. The
// snapshot may be stale by the time the caller renders it.
func (s *nearbyService) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyRequest, error) {
	const op = "service.Nearby"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.ValidateStruct(q); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	radius := s.defaultRadiusKm
	if q.RadiusKM != nil {
		radius = *q.RadiusKM
	}

	candidates, err := s.candidates(ctx, *q.Lat, *q.Lon, radius)
	if err != nil {
		s.logger.ErrorContext(ctx, "load candidates failed", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	nearby := rankNearby(candidates, *q.Lat, *q.Lon, radius)

	span.SetAttributes(
		attribute.Float64("nearby.radius_km", radius),
		attribute.Int("nearby.candidates", len(candidates)),
		attribute.Int("nearby.matched", len(nearby)),
	)
	s.logger.DebugContext(ctx, "haversine filter done",
		slog.Float64("radius_km", radius),
		slog.Int("total", len(candidates)),
		slog.Int("nearby", len(nearby)),
	)
	return nearby, nil
}

func (s *nearbyService) candidates(ctx context.Context, lat, lng, radiusKm float64) ([]*domain.Request, error) {
	if f, ok := s.store.(RadiusFinder); ok {
		return f.FindOpenWithin(ctx, lat, lng, radiusKm)
	}
	return s.store.FindAllExcludingStatuses(ctx, domain.TerminalStatuses...)
}

// rankNearby keeps non-terminal candidates within radiusKm of (lat, lon),
// nearest first; equal distances go oldest first, then by id.
func rankNearby(candidates []*domain.Request, lat, lng, radiusKm float64) []domain.NearbyRequest {
	nearby := make([]domain.NearbyRequest, 0)
	for _, req := range candidates {
		if req == nil || req.Status.IsTerminal() {
			continue
		}
		dist := geo.DistanceKM(lat, lng, req.Location.Lat, req.Location.Lon)
		if dist <= radiusKm {
			nearby = append(nearby, domain.NearbyRequest{Request: *req, DistanceKM: dist})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		a, b := nearby[i], nearby[j]
		if a.DistanceKM != b.DistanceKM {
			return a.DistanceKM < b.DistanceKM
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return nearby
}
