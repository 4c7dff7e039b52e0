// Package memory is the in-process store driver used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crisisConnect/internal/domain"
	"crisisConnect/pkg/e"
)

type Store struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domain.Request
	now   func() time.Time
}

func New() *Store {
	return &Store{
		items: make(map[uuid.UUID]*domain.Request),
		now:   time.Now,
	}
}

func (s *Store) Insert(ctx context.Context, r *domain.Request) error {
	const op = "memory.Store.Insert"
	if err := ctx.Err(); err != nil {
		return e.WrapError(ctx, op, err)
	}
	if r == nil {
		return e.Wrap(op, e.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, ok := s.items[r.ID]; ok {
		return e.Wrap(op, e.ErrConflict)
	}
	if r.Status == "" {
		r.Status = domain.StatusActive
	}
	r.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	r.UpdatedAt = r.CreatedAt

	s.items[r.ID] = r.Clone()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "memory.Store.FindByID"
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[id]
	if !ok {
		return nil, e.Wrap(op, e.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error) {
	const op = "memory.Store.FindByOwner"
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return s.collect(func(r *domain.Request) bool { return r.OwnerID == ownerID }), nil
}

func (s *Store) FindAllExcludingStatuses(ctx context.Context, excluded ...domain.RequestStatus) ([]*domain.Request, error) {
	const op = "memory.Store.FindAllExcludingStatuses"
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return s.collect(func(r *domain.Request) bool {
		for _, st := range excluded {
			if r.Status == st {
				return false
			}
		}
		return true
	}), nil
}

func (s *Store) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Request, error) {
	const op = "memory.Store.ConditionalUpdateStatus"
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return nil, e.Wrap(op, e.ErrNotFound)
	}
	if r.Status != upd.Expected {
		return nil, e.Wrap(op, e.ErrPreconditionFailed)
	}
	upd.Apply(r)
	return r.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "memory.Store.Delete"
	if err := ctx.Err(); err != nil {
		return e.WrapError(ctx, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return e.Wrap(op, e.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	const op = "memory.Store.CountByStatus"
	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.RequestStatus]int64, len(domain.AllStatuses))
	for _, r := range s.items {
		out[r.Status]++
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) collect(keep func(*domain.Request) bool) []*domain.Request {
	s.mu.RLock()
	out := make([]*domain.Request, 0, len(s.items))
	for _, r := range s.items {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
