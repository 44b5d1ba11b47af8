//go:build integration

// Package testutil starts a disposable PostgreSQL container for adapter tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
)

var (
	once    sync.Once
	dsn     string
	initErr error
)

// startContainer runs one container per test binary. Ryuk reaps it when the
// process exits, so no per-test termination is registered.
func startContainer() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var ctr *tcpostgres.PostgresContainer
	ctr, initErr = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("registry"),
		tcpostgres.WithUsername("registry"),
		tcpostgres.WithPassword("registry"),
		tcpostgres.BasicWaitStrategies(),
	)
	if initErr != nil {
		return
	}
	dsn, initErr = ctr.ConnectionString(ctx, "sslmode=disable")
	if initErr != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		initErr = err
		return
	}
	defer pool.Close()
	initErr = postgres.Migrate(ctx, pool)
}

// OpenMigratedPool returns a pool against a migrated database. Suites sharing the
// database must seed rows with unique identifiers.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	once.Do(startContainer)
	if initErr != nil {
		t.Fatalf("start postgres: %v", initErr)
	}

	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
