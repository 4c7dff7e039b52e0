// Package render writes JSON responses and maps domain errors to HTTP codes.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"crisisConnect/pkg/e"
)

// RetryAfterSeconds is advertised on 503 responses.
const RetryAfterSeconds = 2

type ErrorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func Fail(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, ErrorBody{Error: msg})
}

// StatusOf classifies err into the response code and a client-safe message.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict, conflictMessage(err)
	case errors.Is(err, e.ErrStoreUnavailable), errors.Is(err, e.ErrCanceled):
		return http.StatusServiceUnavailable, "store unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func conflictMessage(err error) string {
	for _, c := range []error{e.ErrAlreadyClaimed, e.ErrNotInProgress, e.ErrAlreadyClosed, e.ErrStatusChanged} {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return "conflict"
}

// Error logs err at a level matching its class and writes the error body.
func Error(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error) {
	code, msg := StatusOf(err)

	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", code),
		slog.Any("error", err),
	}
	if code >= http.StatusInternalServerError {
		l.Error("handler error", attrs...)
	} else {
		l.Warn("request rejected", attrs...)
	}

	body := ErrorBody{Error: msg}
	var verr *e.ValidationError
	if errors.As(err, &verr) {
		body.Details = verr.Fields
	}
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	JSON(w, code, body)
}
