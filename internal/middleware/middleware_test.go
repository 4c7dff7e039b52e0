package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crisisConnect/pkg/e"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireIdentity(t *testing.T) {
	t.Parallel()

	var seen Identity
	h := RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, " user-1 ")
	req.Header.Set(HeaderUserEmail, "u@example.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen.UserID != "user-1" || seen.Email != "u@example.test" {
		t.Fatalf("unexpected identity %+v", seen)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		key  string
		sent string
		want int
	}{
		{"ok", "secret", "secret", http.StatusNoContent},
		{"wrong", "secret", "nope", http.StatusUnauthorized},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"disabled", "", "", http.StatusForbidden},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		if c.sent != "" {
			req.Header.Set(HeaderAPIKey, c.sent)
		}
		rr := httptest.NewRecorder()
		APIKeyMiddleware(c.key)(okHandler()).ServeHTTP(rr, req)
		if rr.Code != c.want {
			t.Fatalf("%s: expected %d got %d", c.name, c.want, rr.Code)
		}
	}
}

func TestLimit_PerIP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	h := Limit(ctx, 1, 2, time.Minute, logger)(okHandler())

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if call("10.0.0.1:1111") != http.StatusNoContent || call("10.0.0.1:2222") != http.StatusNoContent {
		t.Fatalf("burst must be allowed")
	}
	if got := call("10.0.0.1:3333"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", got)
	}
	if got := call("10.0.0.2:1111"); got != http.StatusNoContent {
		t.Fatalf("other clients must not be throttled, got %d", got)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	t.Parallel()

	l := &rateLimiter{visitors: map[string]*visitor{}, limit: 1, burst: 1, ttl: time.Minute}
	l.getVisitor("a")
	l.sweep(time.Now().Add(2 * time.Minute))
	if len(l.visitors) != 0 {
		t.Fatalf("idle visitor must be evicted")
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Lat float64 `json:"lat"`
	}

	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"ok", `{"lat":1.5}`, false},
		{"empty", ``, true},
		{"malformed", `{"lat":`, true},
		{"unknown_field", `{"lat":1,"x":2}`, true},
		{"trailing", `{"lat":1}{"lat":2}`, true},
	}
	for _, c := range cases {
		var dst body
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(c.payload))
		err := DecodeJSON(httptest.NewRecorder(), req, &dst)
		if c.wantErr != (err != nil) {
			t.Fatalf("%s: wantErr=%v got %v", c.name, c.wantErr, err)
		}
		if err != nil && !errors.Is(err, e.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", c.name, err)
		}
	}
}
