// Package storetest is a compliance suite shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/service"
	"crisisConnect/pkg/e"
)

// Run exercises a store implementation. makeStore must return a clean,
// isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) service.RequestStore) {
	t.Helper()

	t.Run("InsertAndFind", func(t *testing.T) { testInsertAndFind(t, makeStore(t)) })
	t.Run("Ordering", func(t *testing.T) { testOrdering(t, makeStore(t)) })
	t.Run("ConditionalUpdate", func(t *testing.T) { testConditionalUpdate(t, makeStore(t)) })
	t.Run("ConcurrentClaim", func(t *testing.T) { testConcurrentClaim(t, makeStore(t)) })
	t.Run("DeleteAndCount", func(t *testing.T) { testDeleteAndCount(t, makeStore(t)) })
}

func newRequest(owner string, lat, lon float64) *domain.Request {
	return &domain.Request{
		RequesterName: "Ravi",
		MemberCount:   4,
		Description:   "flooded ground floor",
		Address:       "12 Beach Rd",
		Location:      domain.Location{Lat: lat, Lon: lon},
		OwnerID:       owner,
		OwnerContact:  owner + "@example.test",
		Status:        domain.StatusActive,
	}
}

func testInsertAndFind(t *testing.T, s service.RequestStore) {
	ctx := context.Background()
	owner := "u-" + uuid.NewString()

	r := newRequest(owner, 13.0827, 80.2707)
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if r.ID == uuid.Nil {
		t.Fatalf("Insert: id not assigned")
	}
	if r.CreatedAt.IsZero() || !r.UpdatedAt.Equal(r.CreatedAt) {
		t.Fatalf("Insert: timestamps not set: created=%v updated=%v", r.CreatedAt, r.UpdatedAt)
	}

	got, err := s.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.OwnerID != owner || got.Status != domain.StatusActive || got.HelperID != nil {
		t.Fatalf("FindByID: unexpected record %+v", got)
	}
	if diff := got.Location.Lat - 13.0827; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("FindByID: lat lost precision: %v", got.Location.Lat)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("FindByID: createdAt %v != %v", got.CreatedAt, r.CreatedAt)
	}

	if _, err := s.FindByID(ctx, uuid.New()); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("FindByID unknown: expected ErrNotFound, got %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func testOrdering(t *testing.T, s service.RequestStore) {
	ctx := context.Background()
	owner := "u-" + uuid.NewString()
	other := "u-" + uuid.NewString()

	var ids []uuid.UUID
	for i, o := range []string{owner, other, owner} {
		r := newRequest(o, 13+float64(i)/100, 80.27)
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		ids = append(ids, r.ID)
		time.Sleep(5 * time.Millisecond) // distinct creation times
	}

	all, err := s.FindAllExcludingStatuses(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("FindAll: expected 3, got %d", len(all))
	}
	for i := range ids {
		if all[i].ID != ids[i] {
			t.Fatalf("FindAll: position %d expected %s got %s", i, ids[i], all[i].ID)
		}
	}

	mine, err := s.FindByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("FindByOwner: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != ids[0] || mine[1].ID != ids[2] {
		t.Fatalf("FindByOwner: unexpected result %v", mine)
	}

	none, err := s.FindByOwner(ctx, "nobody-"+uuid.NewString())
	if err != nil || len(none) != 0 {
		t.Fatalf("FindByOwner unknown: n=%d err=%v", len(none), err)
	}
}

func testConditionalUpdate(t *testing.T, s service.RequestStore) {
	ctx := context.Background()
	r := newRequest("u-"+uuid.NewString(), 13.08, 80.27)
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	at := r.CreatedAt.Add(time.Minute)
	got, err := s.ConditionalUpdateStatus(ctx, r.ID, domain.StatusUpdate{
		Expected:     domain.StatusActive,
		Next:         domain.StatusInProgress,
		AssignHelper: "helper-1",
		UpdatedAt:    at,
	})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.Status != domain.StatusInProgress || got.Helper() != "helper-1" || !got.UpdatedAt.Equal(at) {
		t.Fatalf("claim: unexpected record %+v", got)
	}

	_, err = s.ConditionalUpdateStatus(ctx, r.ID, domain.StatusUpdate{
		Expected:     domain.StatusActive,
		Next:         domain.StatusInProgress,
		AssignHelper: "helper-2",
		UpdatedAt:    at,
	})
	if !errors.Is(err, e.ErrPreconditionFailed) {
		t.Fatalf("second claim: expected ErrPreconditionFailed, got %v", err)
	}

	stored, err := s.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Helper() != "helper-1" {
		t.Fatalf("failed update must not touch the record: %+v", stored)
	}

	got, err = s.ConditionalUpdateStatus(ctx, r.ID, domain.StatusUpdate{
		Expected:      domain.StatusInProgress,
		Next:          domain.StatusCancelled,
		ReleaseHelper: true,
		UpdatedAt:     at.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.StatusCancelled || got.HelperID != nil {
		t.Fatalf("cancel: unexpected record %+v", got)
	}

	open, err := s.FindAllExcludingStatuses(ctx, domain.TerminalStatuses...)
	if err != nil {
		t.Fatalf("FindAll excluding terminal: %v", err)
	}
	for _, o := range open {
		if o.ID == r.ID {
			t.Fatalf("cancelled request must be excluded")
		}
	}

	_, err = s.ConditionalUpdateStatus(ctx, uuid.New(), domain.StatusUpdate{
		Expected: domain.StatusActive,
		Next:     domain.StatusInProgress,
	})
	if !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func testConcurrentClaim(t *testing.T, s service.RequestStore) {
	ctx := context.Background()
	r := newRequest("u-"+uuid.NewString(), 13.08, 80.27)
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	const helpers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []string
		misses int
	)
	for i := 0; i < helpers; i++ {
		helper := "helper-" + uuid.NewString()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ConditionalUpdateStatus(ctx, r.ID, domain.StatusUpdate{
				Expected:     domain.StatusActive,
				Next:         domain.StatusInProgress,
				AssignHelper: helper,
				UpdatedAt:    time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, helper)
			case errors.Is(err, e.ErrPreconditionFailed):
				misses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(wins) != 1 || misses != helpers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d misses=%d", len(wins), misses)
	}
	stored, err := s.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Helper() != wins[0] {
		t.Fatalf("stored helper %q, winner %q", stored.Helper(), wins[0])
	}
}

func testDeleteAndCount(t *testing.T, s service.RequestStore) {
	ctx := context.Background()
	owner := "u-" + uuid.NewString()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		r := newRequest(owner, 13.08, 80.27)
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, r.ID)
	}
	if _, err := s.ConditionalUpdateStatus(ctx, ids[0], domain.StatusUpdate{
		Expected: domain.StatusActive, Next: domain.StatusInProgress, AssignHelper: "h", UpdatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.StatusActive] != 2 || counts[domain.StatusInProgress] != 1 {
		t.Fatalf("CountByStatus: unexpected %v", counts)
	}

	if err := s.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.FindByID(ctx, ids[1]); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("FindByID after delete: expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, ids[1]); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	mine, err := s.FindByOwner(ctx, owner)
	if err != nil || len(mine) != 2 {
		t.Fatalf("FindByOwner after delete: n=%d err=%v", len(mine), err)
	}

	counts, err = s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.StatusActive] != 1 || counts[domain.StatusInProgress] != 1 {
		t.Fatalf("CountByStatus after delete: unexpected %v", counts)
	}
}
