//go:build integration

package itest

import (
	"testing"

	pgcomplaintrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/complaintrepo"
	pgdocumentrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/documentrepo"
	pgdriverrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/driverrepo"
	pgidempotency "github.com/conductores/driver-registry-api/internal/adapters/postgres/idempotency"
	pgidentityrepo "github.com/conductores/driver-registry-api/internal/adapters/postgres/identityrepo"
	postgres_testutil "github.com/conductores/driver-registry-api/internal/adapters/postgres/testutil"
)

func init() {
	openBackend[backendPostgres] = func(t *testing.T) stores {
		pool := postgres_testutil.OpenMigratedPool(t)
		return stores{
			identities: pgidentityrepo.NewRepo(pool),
			drivers:    pgdriverrepo.NewRepo(pool),
			documents:  pgdocumentrepo.NewRepo(pool),
			complaints: pgcomplaintrepo.NewRepo(pool),
			idem:       pgidempotency.NewStore(pool, pgidempotency.DefaultTTL, nil),
		}
	}
}
