package requests_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"

	"crisisConnect/internal/api/handlers/http/requests"
	mock_requests "crisisConnect/internal/api/handlers/http/requests/mocks"
	"crisisConnect/internal/domain"
	"crisisConnect/internal/middleware"
	"crisisConnect/internal/render"
	"crisisConnect/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	h         *requests.Handler
	lifecycle *mock_requests.MockLifecycle
	nearby    *mock_requests.MockNearbyFinder
	stats     *mock_requests.MockStatsGetter
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := fixture{
		lifecycle: mock_requests.NewMockLifecycle(ctrl),
		nearby:    mock_requests.NewMockNearbyFinder(ctrl),
		stats:     mock_requests.NewMockStatsGetter(ctrl),
	}
	f.h = requests.NewHandler(newTestLogger(), f.lifecycle, f.nearby, f.stats)
	return f
}

func asUser(r *http.Request, id string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), middleware.Identity{UserID: id, Email: id + "@example.test"}))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response: %v, body=%s", err, rr.Body.String())
	}
	return out
}

func TestRequestCreate_OwnerFromIdentity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()
	now := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)

	f.lifecycle.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req domain.CreateRequest) (*domain.Request, error) {
			if req.OwnerID != "owner-1" {
				t.Fatalf("owner must come from identity, got %q", req.OwnerID)
			}
			if req.OwnerContact != "owner-1@example.test" {
				t.Fatalf("contact must default to the caller email, got %q", req.OwnerContact)
			}
			if req.Lat == nil || *req.Lat != 13.0827 {
				t.Fatalf("lat not passed: %+v", req.Lat)
			}
			return &domain.Request{ID: id, OwnerID: req.OwnerID, Status: domain.StatusActive, CreatedAt: now, UpdatedAt: now}, nil
		}).
		Times(1)

	body := `{"name":"Ravi","members":4,"lat":13.0827,"lon":80.2707}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString(body)), "owner-1")
	rr := httptest.NewRecorder()
	f.h.RequestCreate(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected %d got %d, body=%s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	got := decodeJSON[map[string]any](t, rr)
	if got["id"] != id.String() || got["status"] != "active" || got["helperId"] != nil {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestRequestCreate_OwnerInBodyRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	body := `{"name":"Ravi","members":4,"lat":1,"lon":1,"ownerId":"someone-else"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString(body)), "owner-1")
	rr := httptest.NewRecorder()
	f.h.RequestCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestRequestCreate_ValidationDetails_400(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.lifecycle.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, e.NewValidationError("lat", "must be between -90 and 90"))

	body := `{"name":"Ravi","members":4,"lat":91,"lon":1}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewBufferString(body)), "owner-1")
	rr := httptest.NewRecorder()
	f.h.RequestCreate(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
	got := decodeJSON[render.ErrorBody](t, rr)
	if got.Details["lat"] == "" {
		t.Fatalf("expected lat detail, got %+v", got)
	}
}

func TestRequestClaim_HelperIsCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()
	helper := "helper-1"

	f.lifecycle.EXPECT().
		Claim(gomock.Any(), domain.ClaimRequest{ID: id, HelperID: helper}).
		Return(&domain.Request{ID: id, Status: domain.StatusInProgress, HelperID: &helper}, nil).
		Times(1)

	req := withID(asUser(httptest.NewRequest(http.MethodPost, "/", nil), helper), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestClaim(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	got := decodeJSON[map[string]any](t, rr)
	if got["helperId"] != helper || got["status"] != "in-progress" {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestRequestClaim_AlreadyClaimed_409(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()

	f.lifecycle.EXPECT().Claim(gomock.Any(), gomock.Any()).Return(nil, e.ErrAlreadyClaimed)

	req := withID(asUser(httptest.NewRequest(http.MethodPost, "/", nil), "helper-2"), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestClaim(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected %d got %d", http.StatusConflict, rr.Code)
	}
}

func TestRequestGet_InvalidID_400(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req := withID(httptest.NewRequest(http.MethodGet, "/", nil), "not-a-uuid")
	rr := httptest.NewRecorder()
	f.h.RequestGet(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected %d got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestRequestGet_NotFound_404(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()
	f.lifecycle.EXPECT().Get(gomock.Any(), id).Return(nil, e.ErrNotFound)

	req := withID(httptest.NewRequest(http.MethodGet, "/", nil), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestGet(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected %d got %d", http.StatusNotFound, rr.Code)
	}
}

func TestRequestCancel_Forbidden_403(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()
	f.lifecycle.EXPECT().
		Cancel(gomock.Any(), domain.CancelRequest{ID: id, CallerID: "intruder"}).
		Return(nil, e.ErrForbidden)

	req := withID(asUser(httptest.NewRequest(http.MethodPost, "/", nil), "intruder"), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestCancel(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected %d got %d", http.StatusForbidden, rr.Code)
	}
}

func TestRequestResolve_StoreUnavailable_503(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()
	f.lifecycle.EXPECT().Resolve(gomock.Any(), id).Return(nil, e.ErrStoreUnavailable)

	req := withID(asUser(httptest.NewRequest(http.MethodPost, "/", nil), "helper-1"), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestResolve(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected %d got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRequestChangeStatus_PassesCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	id := uuid.New()

	f.lifecycle.EXPECT().
		ChangeStatus(gomock.Any(), id, "owner-1", domain.ChangeStatusRequest{Status: domain.StatusCancelled}).
		Return(&domain.Request{ID: id, Status: domain.StatusCancelled}, nil)

	req := withID(asUser(httptest.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(`{"status":"cancelled"}`)), "owner-1"), id.String())
	rr := httptest.NewRecorder()
	f.h.RequestChangeStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestRequestNearby_OK(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.nearby.EXPECT().
		Nearby(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q domain.NearbyQuery) ([]domain.NearbyRequest, error) {
			if q.Lat == nil || *q.Lat != 13.05 || q.RadiusKM != nil {
				t.Fatalf("unexpected query %+v", q)
			}
			return []domain.NearbyRequest{{Request: domain.Request{ID: uuid.New()}, DistanceKM: 4.27}}, nil
		})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/requests/nearby", bytes.NewBufferString(`{"lat":13.05,"lon":80.25}`)), "helper-1")
	rr := httptest.NewRecorder()
	f.h.RequestNearby(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d, body=%s", http.StatusOK, rr.Code, rr.Body.String())
	}
	got := decodeJSON[[]map[string]any](t, rr)
	if len(got) != 1 || got[0]["distanceKm"] != 4.27 {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestRequestNearby_EmptyIsArray(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.nearby.EXPECT().Nearby(gomock.Any(), gomock.Any()).Return([]domain.NearbyRequest{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"lat":0,"lon":0,"radiusKm":1}`))
	rr := httptest.NewRecorder()
	f.h.RequestNearby(rr, req)

	if body := bytes.TrimSpace(rr.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("expected [], got %s", body)
	}
}

func TestStatsGet_OK(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.stats.EXPECT().GetStats(gomock.Any()).Return(&domain.RequestStats{Total: 6, Active: 3, InProgress: 2, Completed: 1}, nil)

	rr := httptest.NewRecorder()
	f.h.StatsGet(rr, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
	got := decodeJSON[map[string]int64](t, rr)
	if got["total"] != 6 || got["active"] != 3 || got["inProgress"] != 2 || got["completed"] != 1 || got["cancelled"] != 0 {
		t.Fatalf("unexpected body %v", got)
	}
}

func TestRequestListMine_UsesCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.lifecycle.EXPECT().ListByOwner(gomock.Any(), "owner-1").Return([]*domain.Request{}, nil)

	rr := httptest.NewRecorder()
	f.h.RequestListMine(rr, asUser(httptest.NewRequest(http.MethodGet, "/", nil), "owner-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
}
