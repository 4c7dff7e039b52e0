package system

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"crisisConnect/internal/render"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	logger *slog.Logger
	store  Pinger
}

func NewHandler(logger *slog.Logger, store Pinger) *Handler {
	return &Handler{logger: logger, store: store}
}

func (h *Handler) SystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("health: store ping failed", slog.Any("error", err))
			w.Header().Set("Retry-After", "5")
			render.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
	}

	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
