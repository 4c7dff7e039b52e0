package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS help_requests (
	id             uuid PRIMARY KEY,
	requester_name text NOT NULL,
	member_count   integer NOT NULL CHECK (member_count > 0),
	description    text NOT NULL DEFAULT '',
	address        text NOT NULL DEFAULT '',
	geo_point      geography(Point, 4326) NOT NULL,
	owner_id       text NOT NULL,
	owner_contact  text NOT NULL,
	status         text NOT NULL CHECK (status IN ('active', 'in-progress', 'completed', 'cancelled')),
	helper_id      text,
	created_at     timestamptz NOT NULL,
	updated_at     timestamptz NOT NULL,
	CONSTRAINT help_requests_helper_matches_status
		CHECK ((status IN ('in-progress', 'completed')) = (helper_id IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS help_requests_created_idx ON help_requests (created_at, id);
CREATE INDEX IF NOT EXISTS help_requests_owner_idx ON help_requests (owner_id, created_at);
CREATE INDEX IF NOT EXISTS help_requests_status_idx ON help_requests (status);
CREATE INDEX IF NOT EXISTS help_requests_geo_idx ON help_requests USING GIST (geo_point);
`

// Migrate creates the help_requests table and its indexes if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
