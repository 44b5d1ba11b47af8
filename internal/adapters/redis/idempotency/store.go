package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "idem:"
)

// Store keeps idempotency records in redis. Expiry is delegated to key TTLs.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

type storedRecord struct {
	StatusCode  int       `json:"status"`
	ContentType string    `json:"contentType"`
	Body        []byte    `json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return idempotency.Record{}, false, nil
	}
	if err != nil {
		return idempotency.Record{}, false, err
	}
	var sr storedRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  sr.StatusCode,
		ContentType: sr.ContentType,
		Body:        sr.Body,
		CreatedAt:   sr.CreatedAt.UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(storedRecord{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(fp), raw, s.ttl).Err()
}

// redisKey hashes the fingerprint so caller-supplied keys cannot collide across
// fields or inject separators.
func redisKey(fp idempotency.Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{string(fp.Key), fp.Subject, fp.Method, fp.Route, fp.BodyHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
