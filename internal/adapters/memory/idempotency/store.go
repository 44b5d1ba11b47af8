package idempotency

import (
	"context"
	"sync"
	"time"

	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

// DefaultTTL bounds how long a registration response can be replayed.
const DefaultTTL = 24 * time.Hour

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Store is an in-memory implementation of idempotency.Store.
// Records older than the TTL are treated as absent and pruned on write.
// It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	m   map[idempotency.Fingerprint]idempotency.Record
	ttl time.Duration
	clk clockport.Clock
}

func NewStore() *Store {
	return NewStoreWithOptions(DefaultTTL, nil)
}

func NewStoreWithOptions(ttl time.Duration, clk clockport.Clock) *Store {
	if clk == nil {
		clk = systemClock{}
	}
	return &Store{
		m:   make(map[idempotency.Fingerprint]idempotency.Record),
		ttl: ttl,
		clk: clk,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now()
	}
	rec.Body = append([]byte(nil), rec.Body...)

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
		}
	}
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return s.ttl > 0 && s.clk.Now().Sub(rec.CreatedAt) >= s.ttl
}
