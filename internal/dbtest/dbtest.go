// Package dbtest provides a migrated PostgreSQL pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"order-engine/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// Pool returns a pool on a freshly migrated, empty database. It uses
// TEST_DB_DSN when set and otherwise starts a throwaway container. The test
// is skipped under -short or when no container provider is reachable.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		ctr, err := postgres.Run(ctx, image,
			postgres.WithDatabase("orders_test"),
			postgres.WithUsername("orders"),
			postgres.WithPassword("orders"),
			postgres.BasicWaitStrategies(),
		)
		t.Cleanup(func() {
			if ctr == nil {
				return
			}
			if err := ctr.Terminate(context.Background()); err != nil {
				t.Logf("terminate postgres container: %v", err)
			}
		})
		if err != nil {
			t.Fatalf("start postgres container: %v", err)
		}
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("container dsn: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(t, pool)
	return pool
}

// Reset empties every table.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	const q = `TRUNCATE outbox, order_items, orders, cart_lines, carts, vouchers, products RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(context.Background(), q); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
