package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"crisisConnect/internal/api"
	"crisisConnect/internal/config"
	"crisisConnect/internal/domain"
	"crisisConnect/internal/middleware"
	"crisisConnect/internal/service"
	"crisisConnect/internal/storage/memory"
)

const testAPIKey = "secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	svc := service.NewService(
		service.NewRequestService(store, logger, nil),
		service.NewNearbyService(store, logger, service.DefaultRadiusKM),
		service.NewStatsService(store),
	)

	cfg := &config.Config{
		Http:      config.HttpConfig{Port: ":0", ShutdownTimeout: time.Second},
		APIKey:    testAPIKey,
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
	}

	srv := httptest.NewServer(api.NewServer(ctx, cfg, logger, svc, store, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

type call struct {
	method, path, user string
	body               any
	headers            map[string]string
}

func do(t *testing.T, srv *httptest.Server, c call) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(c.method, srv.URL+c.path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(middleware.HeaderUserID, c.user)
		req.Header.Set(middleware.HeaderUserEmail, c.user+"@example.org")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out
}

func mustStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func createBody(name string, lat, lon float64) map[string]any {
	return map[string]any{
		"name":        name,
		"members":     3,
		"description": "need water",
		"address":     "Anna Salai",
		"lat":         lat,
		"lon":         lon,
	}
}

func TestRouter_Lifecycle(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests", user: "owner-1", body: createBody("Ravi", 13.0827, 80.2707)})
	mustStatus(t, resp, body, http.StatusCreated)

	var created domain.Request
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.OwnerID != "owner-1" || created.OwnerContact != "owner-1@example.org" || created.Status != domain.StatusActive {
		t.Fatalf("unexpected created record: %+v", created)
	}
	base := "/api/v1/requests/" + created.ID.String()

	resp, body = do(t, srv, call{method: http.MethodGet, path: base, user: "helper-1"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests/nearby", user: "helper-1",
		body: map[string]any{"lat": 12.9716, "lon": 77.5946, "radiusKm": 400}})
	mustStatus(t, resp, body, http.StatusOK)
	var nearby []domain.NearbyRequest
	if err := json.Unmarshal(body, &nearby); err != nil {
		t.Fatalf("decode nearby: %v", err)
	}
	if len(nearby) != 1 || nearby[0].DistanceKM < 280 || nearby[0].DistanceKM > 300 {
		t.Fatalf("expected Chennai at ~290km, got %+v", nearby)
	}

	resp, body = do(t, srv, call{method: http.MethodPost, path: base + "/claim", user: "helper-1"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, srv, call{method: http.MethodPost, path: base + "/claim", user: "helper-2"})
	mustStatus(t, resp, body, http.StatusConflict)

	resp, body = do(t, srv, call{method: http.MethodPost, path: base + "/cancel", user: "helper-1"})
	mustStatus(t, resp, body, http.StatusForbidden)

	resp, body = do(t, srv, call{method: http.MethodPost, path: base + "/resolve", user: "helper-1"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, srv, call{method: http.MethodPost, path: base + "/cancel", user: "owner-1"})
	mustStatus(t, resp, body, http.StatusConflict)

	resp, body = do(t, srv, call{method: http.MethodGet, path: "/api/v1/stats", user: "owner-1"})
	mustStatus(t, resp, body, http.StatusOK)
	var stats domain.RequestStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	resp, body = do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests/nearby", user: "helper-1",
		body: map[string]any{"lat": 12.9716, "lon": 77.5946, "radiusKm": 400}})
	mustStatus(t, resp, body, http.StatusOK)
	if string(bytes.TrimSpace(body)) != "[]" {
		t.Fatalf("completed request must not be offered, got %s", body)
	}
}

func TestRouter_StatusEndpointAndOwnerListing(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests", user: "owner-2", body: createBody("Asha", 10, 10)})
	mustStatus(t, resp, body, http.StatusCreated)
	var created domain.Request
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, body = do(t, srv, call{method: http.MethodPatch, path: "/api/v1/requests/" + created.ID.String() + "/status", user: "helper-9",
		body: map[string]any{"status": "in-progress"}})
	mustStatus(t, resp, body, http.StatusOK)
	var claimed domain.Request
	if err := json.Unmarshal(body, &claimed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claimed.Helper() != "helper-9" {
		t.Fatalf("helper must default to caller, got %q", claimed.Helper())
	}

	resp, body = do(t, srv, call{method: http.MethodGet, path: "/api/v1/users/owner-2/requests", user: "anyone"})
	mustStatus(t, resp, body, http.StatusOK)
	var owned []domain.Request
	if err := json.Unmarshal(body, &owned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != created.ID {
		t.Fatalf("unexpected owner listing: %+v", owned)
	}

	resp, body = do(t, srv, call{method: http.MethodGet, path: "/api/v1/requests/mine", user: "owner-2"})
	mustStatus(t, resp, body, http.StatusOK)
}

func TestRouter_AuthAndRouting(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := do(t, srv, call{method: http.MethodGet, path: "/api/v1/health"})
	mustStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, srv, call{method: http.MethodGet, path: "/api/v1/requests"})
	mustStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = do(t, srv, call{method: http.MethodGet, path: "/api/v1/requests/not-a-uuid", user: "u"})
	mustStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests", user: "u",
		body: map[string]any{"name": "x", "members": 1, "description": "d", "address": "a", "lat": 91, "lon": 0}})
	mustStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, srv, call{method: http.MethodDelete, path: "/api/v1/admin/requests/00000000-0000-0000-0000-000000000001"})
	mustStatus(t, resp, body, http.StatusUnauthorized)

	resp, body = do(t, srv, call{method: http.MethodDelete, path: "/api/v1/admin/requests/00000000-0000-0000-0000-000000000001",
		headers: map[string]string{middleware.HeaderAPIKey: testAPIKey}})
	mustStatus(t, resp, body, http.StatusNotFound)
}

func TestRouter_ConcurrentClaimSingleWinner(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := do(t, srv, call{method: http.MethodPost, path: "/api/v1/requests", user: "owner", body: createBody("Meera", 1, 1)})
	mustStatus(t, resp, body, http.StatusCreated)
	var created domain.Request
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	const helpers = 10
	codes := make(chan int, helpers)
	var wg sync.WaitGroup
	for i := 0; i < helpers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/requests/"+created.ID.String()+"/claim", nil)
			if err != nil {
				codes <- 0
				return
			}
			req.Header.Set(middleware.HeaderUserID, fmt.Sprintf("helper-%d", i))
			resp, err := srv.Client().Do(req)
			if err != nil {
				codes <- 0
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			codes <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(codes)

	var ok, conflict int
	for c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", c)
		}
	}
	if ok != 1 || conflict != helpers-1 {
		t.Fatalf("expected one winner, got ok=%d conflict=%d", ok, conflict)
	}
}
