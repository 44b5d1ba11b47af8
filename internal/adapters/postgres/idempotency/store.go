package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conductores/driver-registry-api/internal/platform/clock"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a stored response can be replayed.
const DefaultTTL = 24 * time.Hour

const (
	selectRecord = `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = @key
		  AND subject = @subject
		  AND method = @method
		  AND route = @route
		  AND body_hash = @body_hash
		  AND created_at > @cutoff`

	pruneExpired = `DELETE FROM idempotency_keys WHERE created_at <= @cutoff`

	upsertRecord = `
		INSERT INTO idempotency_keys (
			idempotency_key, subject, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES (
			@key, @subject, @method, @route, @body_hash,
			@status_code, @content_type, @body, @created_at
		)
		ON CONFLICT (idempotency_key, subject, method, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at`
)

// Store keeps idempotency records in the idempotency_keys table. Expired rows
// are ignored on read and pruned in the same transaction as each write.
type Store struct {
	pool  *pgxpool.Pool
	ttl   time.Duration
	clock clockport.Clock
}

// NewStore returns a store whose records live for ttl (DefaultTTL when zero).
// A nil clk uses the system clock.
func NewStore(pool *pgxpool.Pool, ttl time.Duration, clk clockport.Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Store{pool: pool, ttl: ttl, clock: clk}
}

func fingerprintArgs(fp idempotency.Fingerprint) pgx.NamedArgs {
	return pgx.NamedArgs{
		"key":       string(fp.Key),
		"subject":   fp.Subject,
		"method":    fp.Method,
		"route":     fp.Route,
		"body_hash": fp.BodyHash,
	}
}

func (s *Store) cutoff() time.Time {
	return s.clock.Now().UTC().Add(-s.ttl)
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	args := fingerprintArgs(fp)
	args["cutoff"] = s.cutoff()

	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, args).Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}
	if rec.Body == nil {
		rec.Body = []byte{}
	}

	args := fingerprintArgs(fp)
	args["status_code"] = rec.StatusCode
	args["content_type"] = rec.ContentType
	args["body"] = rec.Body
	args["created_at"] = rec.CreatedAt.UTC()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pruneExpired, pgx.NamedArgs{"cutoff": s.cutoff()}); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsertRecord, args)
		return err
	})
}
