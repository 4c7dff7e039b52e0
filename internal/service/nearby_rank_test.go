package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"crisisConnect/internal/domain"
)

func TestRankNearby(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	at := func(lat, lon float64, st domain.RequestStatus, offset time.Duration) *domain.Request {
		return &domain.Request{
			ID:        uuid.New(),
			Location:  domain.Location{Lat: lat, Lon: lon},
			Status:    st,
			CreatedAt: base.Add(offset),
		}
	}

	near := at(13.0500, 80.2500, domain.StatusActive, 0)
	nearer := at(13.0800, 80.2700, domain.StatusInProgress, time.Minute)
	far := at(12.9716, 77.5946, domain.StatusActive, 0)
	closed := at(13.0827, 80.2707, domain.StatusCompleted, 0)
	cancelled := at(13.0827, 80.2707, domain.StatusCancelled, 0)

	got := rankNearby([]*domain.Request{near, far, closed, nearer, cancelled, nil}, 13.0827, 80.2707, 50)

	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].ID != nearer.ID || got[1].ID != near.ID {
		t.Fatalf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].DistanceKM > got[1].DistanceKM {
		t.Fatalf("results must be ascending by distance")
	}
	if got[0].DistanceKM < 0.2 || got[0].DistanceKM > 0.5 {
		t.Fatalf("unexpected distance %.3f", got[0].DistanceKM)
	}
}

func TestRankNearby_TieBreak(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	older := &domain.Request{ID: uuid.New(), Location: domain.Location{Lat: 10, Lon: 10}, Status: domain.StatusActive, CreatedAt: base}
	newer := &domain.Request{ID: uuid.New(), Location: domain.Location{Lat: 10, Lon: 10}, Status: domain.StatusActive, CreatedAt: base.Add(time.Second)}

	got := rankNearby([]*domain.Request{newer, older}, 10, 10, 1)
	if len(got) != 2 || got[0].ID != older.ID {
		t.Fatalf("equal distances must order by creation time")
	}
}

func TestRankNearby_BoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	r := &domain.Request{ID: uuid.New(), Location: domain.Location{Lat: 1, Lon: 0}, Status: domain.StatusActive}
	probe := rankNearby([]*domain.Request{r}, 0, 0, 1000)
	if len(probe) != 1 {
		t.Fatalf("expected a match")
	}

	exact := rankNearby([]*domain.Request{r}, 0, 0, probe[0].DistanceKM)
	if len(exact) != 1 {
		t.Fatalf("request exactly at the radius must be included")
	}
}

func TestRankNearby_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	if got := rankNearby(nil, 0, 0, 10); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
