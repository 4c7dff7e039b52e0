package service

import (
	"context"

	"crisisConnect/internal/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// RequestStore is the persistence gateway. Implementations must make
// ConditionalUpdateStatus a single-record atomic compare-and-set and report a
// miss as e.ErrPreconditionFailed, an absent record as e.ErrNotFound.
type RequestStore interface {
	Insert(ctx context.Context, r *domain.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error)
	FindAllExcludingStatuses(ctx context.Context, excluded ...domain.RequestStatus) ([]*domain.Request, error)
	ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Request, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
	Ping(ctx context.Context) error
}

// RadiusFinder is an optional store capability: a spatial prefilter of
// non-terminal requests. It may return extra candidates but must not miss any
// within radiusKm.
type RadiusFinder interface {
	FindOpenWithin(ctx context.Context, lat, lon, radiusKm float64) ([]*domain.Request, error)
}

// Жизненный цикл заявки
type RequestService interface {
	Create(ctx context.Context, req domain.CreateRequest) (*domain.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	List(ctx context.Context) ([]*domain.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error)
	Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Request, error)
	Resolve(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Request, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, callerID string, req domain.ChangeStatusRequest) (*domain.Request, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// Поиск заявок рядом с волонтёром
type NearbyService interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyRequest, error)
}

// Статистика
type StatsService interface {
	GetStats(ctx context.Context) (*domain.RequestStats, error)
}

type Service struct {
	RequestService RequestService
	NearbyService  NearbyService
	StatsService   StatsService
}

func NewService(
	requestService RequestService,
	nearbyService NearbyService,
	statsService StatsService,
) *Service {
	return &Service{
		RequestService: requestService,
		NearbyService:  nearbyService,
		StatsService:   statsService,
	}
}
