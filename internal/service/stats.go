package service

import (
	"context"

	"crisisConnect/internal/domain"
)

func (s *Service) GetStats(ctx context.Context) (*domain.RequestStats, error) {
	return s.StatsService.GetStats(ctx)
}
