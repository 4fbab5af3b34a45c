// Package dbtest opens the Postgres database used by integration tests.
// Tests are skipped unless TEST_POSTGRES_DSN points at a disposable database;
// every call migrates it and empties every table. Packages sharing one
// database must not run concurrently (go test -p 1).
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/mindcare/internal/db"
)

const EnvDSN = "TEST_POSTGRES_DSN"

func Open(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skip(EnvDSN + " not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	m, err := db.NewMigrator(pool)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	_, err = pool.Exec(ctx, `
		TRUNCATE event_logs, scheduled_emails, preferred_periods, appointment_details,
			appointments, available_slots, availability_rules, therapists, users
	`)
	require.NoError(t, err)
	return pool
}
