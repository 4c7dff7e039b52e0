package service

import (
	"context"

	"crisisConnect/internal/domain"

	"github.com/google/uuid"
)

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Request, error) {
	return s.RequestService.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return s.RequestService.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Request, error) {
	return s.RequestService.List(ctx)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error) {
	return s.RequestService.ListByOwner(ctx, ownerID)
}

func (s *Service) Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Request, error) {
	return s.RequestService.Claim(ctx, req)
}

func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return s.RequestService.Resolve(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Request, error) {
	return s.RequestService.Cancel(ctx, req)
}

func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, callerID string, req domain.ChangeStatusRequest) (*domain.Request, error) {
	return s.RequestService.ChangeStatus(ctx, id, callerID, req)
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.RequestService.Remove(ctx, id)
}
