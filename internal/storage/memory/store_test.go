package memory_test

import (
	"context"
	"errors"
	"testing"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/service"
	"crisisConnect/internal/storage/memory"
	"crisisConnect/internal/storage/storetest"
	"crisisConnect/pkg/e"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) service.RequestStore {
		return memory.New()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.New()
	r := &domain.Request{RequesterName: "A", MemberCount: 1, OwnerID: "o", OwnerContact: "c"}
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	got.Status = domain.StatusCompleted

	again, err := s.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if again.Status != domain.StatusActive {
		t.Fatalf("caller mutation leaked into the store: %s", again.Status)
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := memory.New().FindAllExcludingStatuses(ctx); !errors.Is(err, e.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}
