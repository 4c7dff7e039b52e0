package admin

import (
	"context"
	"log/slog"
	"net/http"

	"crisisConnect/internal/render"
	"crisisConnect/pkg/e"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Remover interface {
	Remove(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger  *slog.Logger
	Remover Remover
}

func NewHandler(logger *slog.Logger, remover Remover) *Handler {
	return &Handler{
		logger:  logger,
		Remover: remover,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

// AdminRequestDelete hard-deletes a request. Lifecycle transitions never
// remove records; this is the only path that does.
func (h *Handler) AdminRequestDelete(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("AdminRequestDelete", slog.String("remote", r.RemoteAddr))

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		l.Warn("invalid id", slog.String("id", idStr), slog.String("error", err.Error()))
		render.Error(w, r, l, e.NewValidationError("id", "must be a UUID"))
		return
	}

	if err := h.Remover.Remove(r.Context(), id); err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Info("request removed by operator", slog.String("id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
