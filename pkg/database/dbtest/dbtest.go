//go:build integration

// Package dbtest provides a migrated PostgreSQL database for store tests. It uses
// TEST_DATABASE_URL when set and otherwise starts a throwaway container.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/aura-events/backend/pkg/database"
)

// Pool returns a pool on a migrated database, closed when t ends. The test is
// skipped if no database can be started.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		container, err := postgres.Run(ctx, "postgres:15-alpine",
			postgres.WithDatabase("events_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("Failed to start PostgreSQL container: %v", err)
		}
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				t.Logf("Warning: failed to terminate PostgreSQL container: %v", err)
			}
		})
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := database.NewPostgresPool(ctx, dsn, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

// SeedUser inserts a user with a unique email and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, role) VALUES ($1, $2) RETURNING id`,
		uuid.NewString()+"@seed.test", role,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedEvent inserts a minimal event owned by ownerID and returns its id.
func SeedEvent(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO events (title, location, date, public_slug, owner_id) VALUES ('seed', 'here', NOW(), $1, $2) RETURNING id`,
		"seed-"+uuid.NewString(), ownerID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
