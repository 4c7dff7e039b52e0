package requests

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/middleware"
	"crisisConnect/internal/render"
	"crisisConnect/pkg/e"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Lifecycle interface {
	Create(ctx context.Context, req domain.CreateRequest) (*domain.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	List(ctx context.Context) ([]*domain.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error)
	Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Request, error)
	Resolve(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Request, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, callerID string, req domain.ChangeStatusRequest) (*domain.Request, error)
}

type NearbyFinder interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.NearbyRequest, error)
}

type StatsGetter interface {
	GetStats(ctx context.Context) (*domain.RequestStats, error)
}

type Handler struct {
	logger    *slog.Logger
	Lifecycle Lifecycle
	Nearby    NearbyFinder
	Stats     StatsGetter
}

func NewHandler(logger *slog.Logger, lifecycle Lifecycle, nearby NearbyFinder, stats StatsGetter) *Handler {
	return &Handler{
		logger:    logger,
		Lifecycle: lifecycle,
		Nearby:    nearby,
		Stats:     stats,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

// createBody is the wire shape of a new request; the owner comes from the
// caller identity, never from the body.
type createBody struct {
	Name         string   `json:"name"`
	Members      int      `json:"members"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	OwnerContact string   `json:"ownerContact"`
}

func (h *Handler) RequestCreate(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	caller, _ := middleware.IdentityFrom(r.Context())

	var body createBody
	if err := middleware.DecodeJSON(w, r, &body); err != nil {
		render.Error(w, r, l, err)
		return
	}

	contact := strings.TrimSpace(body.OwnerContact)
	if contact == "" {
		contact = caller.Email
	}

	created, err := h.Lifecycle.Create(r.Context(), domain.CreateRequest{
		Name:         body.Name,
		Members:      body.Members,
		Description:  body.Description,
		Address:      body.Address,
		Lat:          body.Lat,
		Lon:          body.Lon,
		OwnerID:      caller.UserID,
		OwnerContact: contact,
	})
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Info("request created", slog.String("id", created.ID.String()))
	render.JSON(w, http.StatusCreated, created)
}

func (h *Handler) RequestList(w http.ResponseWriter, r *http.Request) {
	items, err := h.Lifecycle.List(r.Context())
	if err != nil {
		render.Error(w, r, h.log(r), err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

func (h *Handler) RequestListMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.IdentityFrom(r.Context())
	h.listByOwner(w, r, caller.UserID)
}

func (h *Handler) RequestListByOwner(w http.ResponseWriter, r *http.Request) {
	h.listByOwner(w, r, chi.URLParam(r, "ownerId"))
}

func (h *Handler) listByOwner(w http.ResponseWriter, r *http.Request, ownerID string) {
	items, err := h.Lifecycle.ListByOwner(r.Context(), ownerID)
	if err != nil {
		render.Error(w, r, h.log(r), err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

func (h *Handler) RequestGet(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	id, err := pathID(r)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	item, err := h.Lifecycle.Get(r.Context(), id)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}
	render.JSON(w, http.StatusOK, item)
}

func (h *Handler) RequestClaim(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	caller, _ := middleware.IdentityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	updated, err := h.Lifecycle.Claim(r.Context(), domain.ClaimRequest{ID: id, HelperID: caller.UserID})
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Info("request claimed", slog.String("id", id.String()), slog.String("helper_id", caller.UserID))
	render.JSON(w, http.StatusOK, updated)
}

func (h *Handler) RequestResolve(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	id, err := pathID(r)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	updated, err := h.Lifecycle.Resolve(r.Context(), id)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Info("request resolved", slog.String("id", id.String()))
	render.JSON(w, http.StatusOK, updated)
}

func (h *Handler) RequestCancel(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	caller, _ := middleware.IdentityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	updated, err := h.Lifecycle.Cancel(r.Context(), domain.CancelRequest{ID: id, CallerID: caller.UserID})
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Info("request cancelled", slog.String("id", id.String()))
	render.JSON(w, http.StatusOK, updated)
}

func (h *Handler) RequestChangeStatus(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	caller, _ := middleware.IdentityFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	var body domain.ChangeStatusRequest
	if err := middleware.DecodeJSON(w, r, &body); err != nil {
		render.Error(w, r, l, err)
		return
	}

	updated, err := h.Lifecycle.ChangeStatus(r.Context(), id, caller.UserID, body)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}
	render.JSON(w, http.StatusOK, updated)
}

func (h *Handler) RequestNearby(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)

	var q domain.NearbyQuery
	if err := middleware.DecodeJSON(w, r, &q); err != nil {
		render.Error(w, r, l, err)
		return
	}

	items, err := h.Nearby.Nearby(r.Context(), q)
	if err != nil {
		render.Error(w, r, l, err)
		return
	}

	l.Debug("nearby served", slog.Int("count", len(items)))
	render.JSON(w, http.StatusOK, items)
}

func (h *Handler) StatsGet(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetStats(r.Context())
	if err != nil {
		render.Error(w, r, h.log(r), err)
		return
	}
	render.JSON(w, http.StatusOK, stats)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, e.NewValidationError("id", "must be a UUID")
	}
	return id, nil
}
