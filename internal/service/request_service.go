package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/telemetry"
	"crisisConnect/pkg/e"
	"crisisConnect/pkg/validator"

	"github.com/google/uuid"
)

var tracer = otel.Tracer("crisisConnect/internal/service")

type requestService struct {
	store   RequestStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewRequestService(store RequestStore, logger *slog.Logger, metrics *telemetry.Metrics) RequestService {
	return &requestService{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

func (s *requestService) Create(ctx context.Context, req domain.CreateRequest) (*domain.Request, error) {
	const op = "service.Request.Create"
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	if err := validator.ValidateStruct(req); err != nil {
		return nil, s.fail(ctx, span, op, "create", err)
	}

	r := &domain.Request{
		RequesterName: strings.TrimSpace(req.Name),
		MemberCount:   req.Members,
		Description:   strings.TrimSpace(req.Description),
		Address:       strings.TrimSpace(req.Address),
		Location:      domain.Location{Lat: *req.Lat, Lon: *req.Lon},
		OwnerID:       strings.TrimSpace(req.OwnerID),
		OwnerContact:  strings.TrimSpace(req.OwnerContact),
		Status:        domain.StatusActive,
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, s.fail(ctx, span, op, "create", err)
	}

	span.SetAttributes(attribute.String("request.id", r.ID.String()))
	s.metrics.RecordTransition(ctx, "create", outcomeOK)
	s.logger.InfoContext(ctx, "request created",
		slog.String("id", r.ID.String()),
		slog.String("owner_id", r.OwnerID),
		slog.Int("members", r.MemberCount),
	)
	return r, nil
}

func (s *requestService) Get(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "service.Request.Get"
	if id == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, e.NewValidationError("id", "is required"))
	}
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

func (s *requestService) List(ctx context.Context) ([]*domain.Request, error) {
	const op = "service.Request.List"
	items, err := s.store.FindAllExcludingStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s *requestService) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error) {
	const op = "service.Request.ListByOwner"
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%s: %w", op, e.NewValidationError("ownerId", "is required"))
	}
	items, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Claim is a single conditional update; there is no read before it, so two
// helpers racing on one request can never both win.
func (s *requestService) Claim(ctx context.Context, req domain.ClaimRequest) (*domain.Request, error) {
	const op = "service.Request.Claim"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("request.id", req.ID.String())))
	defer span.End()

	if err := validateID(req.ID); err != nil {
		return nil, s.fail(ctx, span, op, "claim", err)
	}
	if err := validator.ValidateStruct(req); err != nil {
		return nil, s.fail(ctx, span, op, "claim", err)
	}

	updated, err := s.store.ConditionalUpdateStatus(ctx, req.ID, domain.StatusUpdate{
		Expected:     domain.StatusActive,
		Next:         domain.StatusInProgress,
		AssignHelper: strings.TrimSpace(req.HelperID),
		UpdatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, s.fail(ctx, span, op, "claim", casError(err, e.ErrAlreadyClaimed))
	}

	s.metrics.RecordTransition(ctx, "claim", outcomeOK)
	s.logger.InfoContext(ctx, "request claimed",
		slog.String("id", updated.ID.String()),
		slog.String("helper_id", updated.Helper()),
	)
	return updated, nil
}

func (s *requestService) Resolve(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "service.Request.Resolve"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("request.id", id.String())))
	defer span.End()

	if err := validateID(id); err != nil {
		return nil, s.fail(ctx, span, op, "resolve", err)
	}

	updated, err := s.store.ConditionalUpdateStatus(ctx, id, domain.StatusUpdate{
		Expected:  domain.StatusInProgress,
		Next:      domain.StatusCompleted,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, s.fail(ctx, span, op, "resolve", casError(err, e.ErrNotInProgress))
	}

	s.metrics.RecordTransition(ctx, "resolve", outcomeOK)
	s.logger.InfoContext(ctx, "request resolved",
		slog.String("id", updated.ID.String()),
		slog.String("helper_id", updated.Helper()),
	)
	return updated, nil
}

// Cancel reads the record to check ownership (owner is immutable), then
// applies the transition conditioned on the status it observed. The helper,
// if any, is released.
func (s *requestService) Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Request, error) {
	const op = "service.Request.Cancel"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("request.id", req.ID.String())))
	defer span.End()

	if err := validateID(req.ID); err != nil {
		return nil, s.fail(ctx, span, op, "cancel", err)
	}
	if err := validator.ValidateStruct(req); err != nil {
		return nil, s.fail(ctx, span, op, "cancel", err)
	}

	current, err := s.store.FindByID(ctx, req.ID)
	if err != nil {
		return nil, s.fail(ctx, span, op, "cancel", err)
	}
	if current.OwnerID != strings.TrimSpace(req.CallerID) {
		return nil, s.fail(ctx, span, op, "cancel", e.ErrForbidden)
	}
	if !current.Status.CanTransitionTo(domain.StatusCancelled) {
		return nil, s.fail(ctx, span, op, "cancel", e.ErrAlreadyClosed)
	}

	updated, err := s.store.ConditionalUpdateStatus(ctx, req.ID, domain.StatusUpdate{
		Expected:      current.Status,
		Next:          domain.StatusCancelled,
		ReleaseHelper: true,
		UpdatedAt:     s.now().UTC(),
	})
	if err != nil {
		return nil, s.fail(ctx, span, op, "cancel", casError(err, e.ErrStatusChanged))
	}

	s.metrics.RecordTransition(ctx, "cancel", outcomeOK)
	s.logger.InfoContext(ctx, "request cancelled",
		slog.String("id", updated.ID.String()),
		slog.String("previous_status", string(current.Status)),
		slog.String("released_helper", current.Helper()),
	)
	return updated, nil
}

// ChangeStatus serves the generic status endpoint by dispatching to the
// matching transition. A missing helper id on claim defaults to the caller.
func (s *requestService) ChangeStatus(ctx context.Context, id uuid.UUID, callerID string, req domain.ChangeStatusRequest) (*domain.Request, error) {
	const op = "service.Request.ChangeStatus"

	if err := validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch req.Status {
	case domain.StatusInProgress:
		helper := req.HelperID
		if strings.TrimSpace(helper) == "" {
			helper = callerID
		}
		return s.Claim(ctx, domain.ClaimRequest{ID: id, HelperID: helper})
	case domain.StatusCompleted:
		return s.Resolve(ctx, id)
	case domain.StatusCancelled:
		return s.Cancel(ctx, domain.CancelRequest{ID: id, CallerID: callerID})
	default:
		return nil, fmt.Errorf("%s: %w", op, e.NewValidationError("status", "unsupported transition target"))
	}
}

func (s *requestService) Remove(ctx context.Context, id uuid.UUID) error {
	const op = "service.Request.Remove"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("request.id", id.String())))
	defer span.End()

	if err := validateID(id); err != nil {
		return s.fail(ctx, span, op, "remove", err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, op, "remove", err)
	}

	s.metrics.RecordTransition(ctx, "remove", outcomeOK)
	s.logger.InfoContext(ctx, "request removed", slog.String("id", id.String()))
	return nil
}

func (s *requestService) fail(ctx context.Context, span trace.Span, op, event string, err error) error {
	outcome := outcomeOf(err)
	s.metrics.RecordTransition(ctx, event, outcome)

	switch outcome {
	case outcomeError, outcomeUnavailable:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "lifecycle operation failed", slog.String("op", op), slog.Any("error", err))
	default:
		span.SetAttributes(attribute.String("outcome", outcome))
		s.logger.WarnContext(ctx, "lifecycle operation rejected", slog.String("op", op), slog.String("outcome", outcome), slog.Any("error", err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// casError turns a compare-and-set miss into the transition's conflict.
func casError(err, conflict error) error {
	if errors.Is(err, e.ErrPreconditionFailed) {
		return conflict
	}
	return err
}

func validateID(id uuid.UUID) error {
	if id == uuid.Nil {
		return e.NewValidationError("id", "is required")
	}
	return nil
}

const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeNotFound    = "not_found"
	outcomeConflict    = "conflict"
	outcomeForbidden   = "forbidden"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, e.ErrInvalidInput):
		return outcomeInvalid
	case errors.Is(err, e.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, e.ErrConflict):
		return outcomeConflict
	case errors.Is(err, e.ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, e.ErrStoreUnavailable):
		return outcomeUnavailable
	default:
		return outcomeError
	}
}
