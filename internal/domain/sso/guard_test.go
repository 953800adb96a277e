package sso

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsys/internal/platform/clock"
	"emsys/internal/platform/config"
	"emsys/internal/platform/db"
	"emsys/internal/platform/db/dbtest"
)

func newSQLiteGuard(t *testing.T) *SQLiteGuard {
	t.Helper()
	return NewSQLiteGuard(dbtest.SQLite(t))
}

func exerciseGuard(t *testing.T, guard ReplayGuard) {
	ctx := context.Background()
	require.NoError(t, guard.Reset(ctx))

	exp := t0.Add(15 * time.Minute)

	ok, err := guard.Consume(ctx, "jti-a", exp, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Consume(ctx, "jti-a", exp, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "second consume must fail")

	seen, err := guard.Seen(ctx, "jti-a", t0)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = guard.Seen(ctx, "jti-b", t0)
	require.NoError(t, err)
	assert.False(t, seen)

	ok, err = guard.Consume(ctx, "jti-b", t0.Add(time.Hour), t0)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := guard.Purge(ctx, exp.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed, "only the expired entry is evicted")

	seen, err = guard.Seen(ctx, "jti-b", exp.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Reset(ctx))
	seen, err = guard.Seen(ctx, "jti-b", t0)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryGuard(t *testing.T) {
	exerciseGuard(t, NewMemoryGuard())
}

func TestSQLiteGuard(t *testing.T) {
	exerciseGuard(t, newSQLiteGuard(t))
}

func TestPostgresGuard(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, db.Migrate(config.StorageDriverPostgres, dsn))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	exerciseGuard(t, NewPostgresGuard(pool))
}

func TestPurgeTask(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard()
	_, err := guard.Consume(ctx, "expired", t0.Add(-time.Minute), t0.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = guard.Consume(ctx, "live", t0.Add(time.Minute), t0)
	require.NoError(t, err)

	out, err := PurgeTask(guard, clock.NewManual(t0))(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out)
	assert.Equal(t, 1, guard.Len())
}
