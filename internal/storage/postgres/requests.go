package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crisisConnect/internal/domain"
	"crisisConnect/internal/geo"
	"crisisConnect/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRequestStore(pool *pgxpool.Pool, logger *slog.Logger) *RequestStore {
	return &RequestStore{pool: pool, logger: logger}
}

const requestColumns = `
	id,
	requester_name,
	member_count,
	description,
	address,
	ST_Y(geo_point::geometry) AS lat,
	ST_X(geo_point::geometry) AS lon,
	owner_id,
	owner_contact,
	status,
	helper_id,
	created_at,
	updated_at`

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var r domain.Request
	if err := row.Scan(
		&r.ID,
		&r.RequesterName,
		&r.MemberCount,
		&r.Description,
		&r.Address,
		&r.Location.Lat,
		&r.Location.Lon,
		&r.OwnerID,
		&r.OwnerContact,
		&r.Status,
		&r.HelperID,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (p *RequestStore) Insert(ctx context.Context, r *domain.Request) error {
	const op = "postgres.Request.Insert"

	if r == nil {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}
	// повторная проверка, чтобы мусор не попал в geography
	if !geo.ValidLat(r.Location.Lat) || !geo.ValidLon(r.Location.Lon) {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidCoordinates)
	}

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = domain.StatusActive
	}
	r.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	r.UpdatedAt = r.CreatedAt

	const query = `
		INSERT INTO help_requests (
			id, requester_name, member_count, description, address, geo_point,
			owner_id, owner_contact, status, helper_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326), $8, $9, $10, $11, $12, $13)
	`

	_, err := p.pool.Exec(ctx, query,
		r.ID,
		r.RequesterName,
		r.MemberCount,
		r.Description,
		r.Address,
		r.Location.Lon,
		r.Location.Lat,
		r.OwnerID,
		r.OwnerContact,
		r.Status,
		r.HelperID,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *RequestStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "postgres.Request.FindByID"

	query := `SELECT ` + requestColumns + ` FROM help_requests WHERE id = $1`

	r, err := scanRequest(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return r, nil
}

func (p *RequestStore) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error) {
	const op = "postgres.Request.FindByOwner"

	query := `SELECT ` + requestColumns + `
		FROM help_requests
		WHERE owner_id = $1
		ORDER BY created_at, id`

	return p.list(ctx, op, query, ownerID)
}

func (p *RequestStore) FindAllExcludingStatuses(ctx context.Context, excluded ...domain.RequestStatus) ([]*domain.Request, error) {
	const op = "postgres.Request.FindAllExcludingStatuses"

	query := `SELECT ` + requestColumns + `
		FROM help_requests
		WHERE status <> ALL($1::text[])
		ORDER BY created_at, id`

	return p.list(ctx, op, query, statusNames(excluded))
}

// FindOpenWithin prefilters non-terminal requests with a PostGIS index scan.
// ST_DWithin measures on the spheroid, so the radius is padded to never drop
// a request the haversine ranker would keep.
func (p *RequestStore) FindOpenWithin(ctx context.Context, lat, lon, radiusKm float64) ([]*domain.Request, error) {
	const op = "postgres.Request.FindOpenWithin"

	if !geo.ValidLat(lat) || !geo.ValidLon(lon) || radiusKm <= 0 {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	query := `SELECT ` + requestColumns + `
		FROM help_requests
		WHERE status <> ALL($4::text[])
		  AND ST_DWithin(
		    geo_point,
		    ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
		    $3 * 1000
		  )
		ORDER BY created_at, id`

	padded := radiusKm*1.01 + 0.1
	return p.list(ctx, op, query, lon, lat, padded, statusNames(domain.TerminalStatuses))
}

func (p *RequestStore) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Request, error) {
	const op = "postgres.Request.ConditionalUpdateStatus"

	query := `
		UPDATE help_requests
		SET status     = $3,
		    helper_id  = CASE
		                   WHEN $4::boolean THEN NULL
		                   WHEN $5::text <> '' THEN $5::text
		                   ELSE helper_id
		                 END,
		    updated_at = $6
		WHERE id = $1 AND status = $2
		RETURNING ` + requestColumns

	r, err := scanRequest(p.pool.QueryRow(ctx, query,
		id,
		upd.Expected,
		upd.Next,
		upd.ReleaseHelper,
		upd.AssignHelper,
		upd.UpdatedAt,
	))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.logger.Error("db conditional update failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	// Ноль строк: записи нет или статус уже другой.
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM help_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		p.logger.Error("db exists probe failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}
	return nil, fmt.Errorf("%s: %w", op, e.ErrPreconditionFailed)
}

func (p *RequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.Request.Delete"

	cmd, err := p.pool.Exec(ctx, `DELETE FROM help_requests WHERE id = $1`, id)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return e.WrapError(ctx, op, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}

	return nil
}

func (p *RequestStore) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	const op = "postgres.Request.CountByStatus"

	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM help_requests GROUP BY status`)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int64, len(domain.AllStatuses))
	for rows.Next() {
		var (
			status domain.RequestStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return counts, nil
}

func (p *RequestStore) Ping(ctx context.Context) error {
	const op = "postgres.Request.Ping"
	if err := p.pool.Ping(ctx); err != nil {
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (p *RequestStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.Request, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	items := make([]*domain.Request, 0, 16)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return items, nil
}

func statusNames(statuses []domain.RequestStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
