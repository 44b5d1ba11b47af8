package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	memclock "github.com/conductores/driver-registry-api/internal/adapters/memory/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotency.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Method:   "POST",
		Route:    "/api/register",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"driverId":"d1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	require.NoError(t, s.Put(context.Background(), fp, rec))

	got, ok, err := s.Get(context.Background(), fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	other := fp
	other.BodyHash = "different"
	_, ok, err = s.Get(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Unix(1000, 0).UTC())
	s := NewStoreWithOptions(time.Minute, clk)
	fp := idempotency.Fingerprint{Key: "k1", Method: "POST", Route: "/api/register", BodyHash: "h"}

	require.NoError(t, s.Put(context.Background(), fp, idempotency.Record{StatusCode: 201, Body: []byte("x")}))

	clk.Advance(59 * time.Second)
	_, ok, err := s.Get(context.Background(), fp)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok, err = s.Get(context.Background(), fp)
	require.NoError(t, err)
	assert.False(t, ok)
}
