package sso

import (
	"context"
	"database/sql"
	"time"

	"emsys/internal/platform/querier"
)

// PostgresGuard shares redemptions across instances; the primary key on jti makes
// the insert the atomic check-and-set.
type PostgresGuard struct {
	DB querier.Querier
}

func NewPostgresGuard(db querier.Querier) *PostgresGuard {
	return &PostgresGuard{DB: db}
}

func (g *PostgresGuard) Consume(ctx context.Context, jti string, expiresAt, now time.Time) (bool, error) {
	tag, err := g.DB.Exec(ctx, `
    INSERT INTO sso_redemptions (jti, expires_at, redeemed_at)
    VALUES ($1,$2,$3)
    ON CONFLICT (jti) DO NOTHING
  `, jti, expiresAt, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (g *PostgresGuard) Seen(ctx context.Context, jti string, now time.Time) (bool, error) {
	var count int
	if err := g.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sso_redemptions
    WHERE jti = $1 AND expires_at >= $2
  `, jti, now).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *PostgresGuard) Purge(ctx context.Context, now time.Time) (int64, error) {
	tag, err := g.DB.Exec(ctx, "DELETE FROM sso_redemptions WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (g *PostgresGuard) Reset(ctx context.Context) error {
	_, err := g.DB.Exec(ctx, "DELETE FROM sso_redemptions")
	return err
}

type SQLiteGuard struct {
	DB *sql.DB
}

func NewSQLiteGuard(db *sql.DB) *SQLiteGuard {
	return &SQLiteGuard{DB: db}
}

func (g *SQLiteGuard) Consume(ctx context.Context, jti string, expiresAt, now time.Time) (bool, error) {
	res, err := g.DB.ExecContext(ctx, `
    INSERT INTO sso_redemptions (jti, expires_at, redeemed_at)
    VALUES (?,?,?)
    ON CONFLICT (jti) DO NOTHING
  `, jti, expiresAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (g *SQLiteGuard) Seen(ctx context.Context, jti string, now time.Time) (bool, error) {
	var count int
	if err := g.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sso_redemptions WHERE jti = ? AND expires_at >= ?",
		jti, now.UnixMilli(),
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *SQLiteGuard) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := g.DB.ExecContext(ctx, "DELETE FROM sso_redemptions WHERE expires_at < ?", now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (g *SQLiteGuard) Reset(ctx context.Context) error {
	_, err := g.DB.ExecContext(ctx, "DELETE FROM sso_redemptions")
	return err
}
