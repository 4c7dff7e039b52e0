package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"crisisConnect/internal/domain"
	"crisisConnect/pkg/e"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds WATCH retries when another writer touches the key
// between read and EXEC.
const maxTxAttempts = 16

// RequestStore keeps each request as JSON under its own key, with sorted sets
// (score = creation time in microseconds) for creation-ordered listing and a
// hash of per-status counters.
type RequestStore struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

func NewRequestStore(client *goredis.Client, prefix string, logger *slog.Logger) *RequestStore {
	return &RequestStore{client: client, prefix: prefix, logger: logger}
}

func (s *RequestStore) requestKey(id uuid.UUID) string { return s.prefix + "request:" + id.String() }
func (s *RequestStore) allKey() string                 { return s.prefix + "requests" }
func (s *RequestStore) countsKey() string              { return s.prefix + "status_counts" }
func (s *RequestStore) ownerKey(owner string) string   { return s.prefix + "owner:" + owner + ":requests" }

func (s *RequestStore) Insert(ctx context.Context, r *domain.Request) error {
	const op = "redis.Request.Insert"

	if r == nil {
		return fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = domain.StatusActive
	}
	r.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	r.UpdatedAt = r.CreatedAt

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := s.requestKey(r.ID)
	member := goredis.Z{Score: float64(r.CreatedAt.UnixMicro()), Member: r.ID.String()}

	err = s.client.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return e.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, s.allKey(), member)
			pipe.ZAdd(ctx, s.ownerKey(r.OwnerID), member)
			pipe.HIncrBy(ctx, s.countsKey(), string(r.Status), 1)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return s.wrap(ctx, op, err)
	}
	return nil
}

func (s *RequestStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	const op = "redis.Request.FindByID"

	data, err := s.client.Get(ctx, s.requestKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		return nil, s.wrap(ctx, op, err)
	}

	var r domain.Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, s.wrap(ctx, op, err)
	}
	return &r, nil
}

func (s *RequestStore) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Request, error) {
	return s.list(ctx, "redis.Request.FindByOwner", s.ownerKey(ownerID), nil)
}

func (s *RequestStore) FindAllExcludingStatuses(ctx context.Context, excluded ...domain.RequestStatus) ([]*domain.Request, error) {
	return s.list(ctx, "redis.Request.FindAllExcludingStatuses", s.allKey(), excluded)
}

// ConditionalUpdateStatus reads the record under WATCH and commits only if no
// other client wrote it in between. An aborted EXEC is re-evaluated against
// the new value, so a concurrent claim ends as ErrPreconditionFailed.
func (s *RequestStore) ConditionalUpdateStatus(ctx context.Context, id uuid.UUID, upd domain.StatusUpdate) (*domain.Request, error) {
	const op = "redis.Request.ConditionalUpdateStatus"

	key := s.requestKey(id)
	var updated domain.Request

	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return e.ErrNotFound
			}
			return err
		}

		var r domain.Request
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if r.Status != upd.Expected {
			return e.ErrPreconditionFailed
		}
		upd.Apply(&r)

		b, err := json.Marshal(&r)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.HIncrBy(ctx, s.countsKey(), string(upd.Expected), -1)
			pipe.HIncrBy(ctx, s.countsKey(), string(upd.Next), 1)
			return nil
		})
		if err == nil {
			updated = r
		}
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, s.wrap(ctx, op, err)
		}
		return &updated, nil
	}

	s.logger.Warn("conditional update gave up after repeated aborts",
		slog.String("op", op),
		slog.String("id", id.String()),
		slog.Int("attempts", maxTxAttempts),
	)
	return nil, fmt.Errorf("%s: %w", op, e.ErrPreconditionFailed)
}

func (s *RequestStore) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "redis.Request.Delete"

	key := s.requestKey(id)
	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return e.ErrNotFound
			}
			return err
		}
		var r domain.Request
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.allKey(), id.String())
			pipe.ZRem(ctx, s.ownerKey(r.OwnerID), id.String())
			pipe.HIncrBy(ctx, s.countsKey(), string(r.Status), -1)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return s.wrap(ctx, op, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", op, e.ErrConflict)
}

func (s *RequestStore) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	const op = "redis.Request.CountByStatus"

	raw, err := s.client.HGetAll(ctx, s.countsKey()).Result()
	if err != nil {
		return nil, s.wrap(ctx, op, err)
	}

	counts := make(map[domain.RequestStatus]int64, len(raw))
	for status, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, s.wrap(ctx, op, err)
		}
		if n > 0 {
			counts[domain.RequestStatus(status)] = n
		}
	}
	return counts, nil
}

func (s *RequestStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.wrap(ctx, "redis.Request.Ping", err)
	}
	return nil
}

func (s *RequestStore) list(ctx context.Context, op, index string, excluded []domain.RequestStatus) ([]*domain.Request, error) {
	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, s.wrap(ctx, op, err)
	}
	items := make([]*domain.Request, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.prefix+"request:"+id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrap(ctx, op, err)
	}

next:
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// удалена между ZRANGE и MGET
			continue
		}
		var r domain.Request
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, s.wrap(ctx, op, err)
		}
		for _, st := range excluded {
			if r.Status == st {
				continue next
			}
		}
		items = append(items, &r)
	}
	return items, nil
}

func (s *RequestStore) wrap(ctx context.Context, op string, err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return fmt.Errorf("%s: %w", op, e.ErrStoreUnavailable)
	}
	wrapped := e.WrapError(ctx, op, err)
	if errors.Is(wrapped, e.ErrInternal) || errors.Is(wrapped, e.ErrStoreUnavailable) {
		s.logger.Error("redis command failed", slog.String("op", op), slog.Any("error", err))
	}
	return wrapped
}
