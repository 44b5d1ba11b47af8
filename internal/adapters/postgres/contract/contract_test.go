//go:build integration

package contract

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conductores/driver-registry-api/internal/adapters/contracttest"
	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
	pgcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/complaintrepo"
	pgdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/documentrepo"
	pgdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/driverrepo"
	pgidempotency "github.com/conductores/driver-registry-api/internal/adapters/postgres/idempotency"
	pgidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/identityrepo"
	"github.com/conductores/driver-registry-api/internal/adapters/postgres/testutil"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/idempotency"
)

func newRepos(t *testing.T) (contracttest.Repos, func()) {
	t.Helper()
	pool := testutil.OpenMigratedPool(t)
	return contracttest.Repos{
		Identities: pgidentityrepo.NewRepo(pool),
		Drivers:    pgdriverrepo.NewRepo(pool),
		Documents:  pgdocumentrepo.NewRepo(pool),
		Complaints: pgcomplaintrepo.NewRepo(pool),
	}, nil
}

func TestContract_IdentityRepo(t *testing.T) {
	contracttest.RunIdentityRepo(t, newRepos)
}

func TestContract_DriverRepo(t *testing.T) {
	contracttest.RunDriverRepo(t, newRepos)
}

func TestContract_DocumentRepo(t *testing.T) {
	contracttest.RunDocumentRepo(t, newRepos)
}

func TestContract_ComplaintRepo(t *testing.T) {
	contracttest.RunComplaintRepo(t, newRepos)
}

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotency.Store, func()) {
		t.Helper()
		return pgidempotency.NewStore(testutil.OpenMigratedPool(t), 0, nil), nil
	})
}

func TestIdempotencyStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	store := pgidempotency.NewStore(testutil.OpenMigratedPool(t), time.Minute, clockport.Func(func() time.Time { return now }))

	fp := idempotency.Fingerprint{
		Key:      idempotency.Key("ttl-" + uuid.NewString()),
		Method:   "POST",
		Route:    "/api/register",
		BodyHash: "h1",
	}
	if err := store.Put(ctx, fp, idempotency.Record{StatusCode: 201, ContentType: "application/json", Body: []byte(`{}`)}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || !ok {
		t.Fatalf("Get before expiry ok=%v err=%v", ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get after expiry ok=%v err=%v", ok, err)
	}
}

func TestMigrate_IsRepeatable(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	if err := postgres.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestDrivers_LookupTokenIsImmutable(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	ctx := context.Background()
	repos, _ := newRepos(t)

	d := contracttest.SeedDriver(t, repos, "Ana", "Zambrano")
	_, err := pool.Exec(ctx, `UPDATE drivers SET lookup_token = $2 WHERE id::text = $1`, string(d.ID), "replaced")
	if err == nil {
		t.Fatalf("expected lookup_token update to be rejected")
	}
	got, err := repos.Drivers.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LookupToken != d.LookupToken {
		t.Fatalf("lookup token changed to %q", got.LookupToken)
	}
}

func TestIdentityRepo_DeleteBlockedByDriver(t *testing.T) {
	ctx := context.Background()
	repos, _ := newRepos(t)

	d := contracttest.SeedDriver(t, repos, "Ana", "Zambrano")
	if err := repos.Identities.Delete(ctx, d.IdentityID); err == nil {
		t.Fatalf("Delete identity with bound driver: expected error")
	}
}
