package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/service"

	mock_service "crisisConnect/internal/service/mocks"
)

func TestService_Claim_Delegates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	requests := mock_service.NewMockRequestService(ctrl)
	req := domain.ClaimRequest{ID: uuid.New(), HelperID: "h"}
	want := &domain.Request{ID: req.ID, Status: domain.StatusInProgress}

	requests.EXPECT().Claim(gomock.Any(), req).Return(want, nil).Times(1)

	svc := service.NewService(requests, nil, nil)
	got, err := svc.Claim(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected response: got=%+v want=%+v", got, want)
	}
}

func TestService_Nearby_Delegates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nearby := mock_service.NewMockNearbyService(ctrl)
	q := domain.NearbyQuery{Lat: ptr(1), Lon: ptr(2)}
	want := []domain.NearbyRequest{{DistanceKM: 1.5}}

	nearby.EXPECT().Nearby(gomock.Any(), q).Return(want, nil).Times(1)

	got, err := service.NewService(nil, nearby, nil).Nearby(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected response: got=%+v want=%+v", got, want)
	}
}

func TestService_GetStats_ErrorPropagated(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	stats := mock_service.NewMockStatsService(ctrl)
	wantErr := errors.New("boom")
	stats.EXPECT().GetStats(gomock.Any()).Return(nil, wantErr).Times(1)

	if _, err := service.NewService(nil, nil, stats).GetStats(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("expected err=%v got=%v", wantErr, err)
	}
}

type ctxKey struct{}

func TestService_Remove_PassesContextValue(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	requests := mock_service.NewMockRequestService(ctrl)
	id := uuid.New()
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	requests.EXPECT().
		Remove(gomock.Any(), id).
		DoAndReturn(func(got context.Context, _ uuid.UUID) error {
			if got.Value(ctxKey{}) != "v" {
				t.Fatalf("context value lost")
			}
			return nil
		})

	if err := service.NewService(requests, nil, nil).Remove(ctx, id); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
