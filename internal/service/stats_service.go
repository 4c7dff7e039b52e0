package service

import (
	"context"
	"fmt"

	"crisisConnect/internal/domain"
)

type statsService struct {
	store RequestStore
}

func NewStatsService(store RequestStore) StatsService {
	return &statsService{store: store}
}

// GetStats counts records per status at call time. Counts are not taken in
// one transaction, so a concurrent write may show in one bucket and not another.
func (s *statsService) GetStats(ctx context.Context) (*domain.RequestStats, error) {
	const op = "service.Stats.GetStats"

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &domain.RequestStats{
		Active:     counts[domain.StatusActive],
		InProgress: counts[domain.StatusInProgress],
		Completed:  counts[domain.StatusCompleted],
		Cancelled:  counts[domain.StatusCancelled],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
