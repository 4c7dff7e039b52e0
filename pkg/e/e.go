package e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func Wrap(message string, err error) error {
	return fmt.Errorf("%s: %w", message, err)
}

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
	ErrCanceled           = errors.New("context canceled")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrInvalidCoordinates = fmt.Errorf("invalid coordinates: %w", ErrInvalidInput)
)

// Conflict outcomes of lifecycle transitions.
var (
	ErrAlreadyClaimed = fmt.Errorf("request is no longer open for claiming: %w", ErrConflict)
	ErrNotInProgress  = fmt.Errorf("request is not in progress: %w", ErrConflict)
	ErrAlreadyClosed  = fmt.Errorf("request is already completed or cancelled: %w", ErrConflict)
	ErrStatusChanged  = fmt.Errorf("request status changed concurrently: %w", ErrConflict)
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrInvalidInput }

// IsTransient reports whether the caller may retry the operation with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func WrapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if isKnown(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCanceled)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case "23503", "23514", "22P02":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		case "57P01", "57P03", "53300":
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrStoreUnavailable)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	}
	if ctx != nil && ctx.Err() != nil {
		return WrapError(context.Background(), op, ctx.Err())
	}
	return fmt.Errorf("%s: %w", op, ErrInternal)
}

func isKnown(err error) bool {
	for _, k := range []error{
		ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized, ErrInvalidInput,
		ErrInternal, ErrCanceled, ErrStoreUnavailable, ErrPreconditionFailed,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
