// Package testenv starts throwaway Postgres and Kafka containers for
// integration tests. Tests using it are skipped under -short and when no
// container runtime is reachable.
package testenv

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
)

const startTimeout = 2 * time.Minute

// Postgres returns a pool on a fresh, migrated database.
func Postgres(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("restaurant"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		t.Fatalf("postgres connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, Logger(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// Kafka returns the broker addresses of a single-node cluster.
func Kafka(t testing.TB) []string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	kafkaC, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("restaurant-test"),
	)
	if err != nil {
		t.Skipf("kafka container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}
	return brokers
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Seed inserts a category, one available menu item priced at price and one
// table, returning the menu item and table ids.
func Seed(t testing.TB, pool *pgxpool.Pool, price int64) (menuItemID, tableID string) {
	t.Helper()
	ctx := context.Background()
	var categoryID string
	err := pool.QueryRow(ctx, `INSERT INTO categories (id, name) VALUES (gen_random_uuid(), 'Mains') RETURNING id::text`).
		Scan(&categoryID)
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	err = pool.QueryRow(ctx, `INSERT INTO menu_items (id, category_id, name, price_cents)
		VALUES (gen_random_uuid(), $1, 'Burger', $2) RETURNING id::text`, categoryID, price).Scan(&menuItemID)
	if err != nil {
		t.Fatalf("seed menu item: %v", err)
	}
	err = pool.QueryRow(ctx, `INSERT INTO restaurant_tables (id, number, capacity)
		VALUES (gen_random_uuid(), 1, 4) RETURNING id::text`).Scan(&tableID)
	if err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return menuItemID, tableID
}
