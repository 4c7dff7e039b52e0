package service

import (
	"context"

	"crisisConnect/internal/domain"
)

func (s *Service) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyRequest, error) {
	return s.NearbyService.Nearby(ctx, q)
}
