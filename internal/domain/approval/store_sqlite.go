package approval

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	raw, err := encodePayload(rec.Payload)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
    INSERT INTO leave_tokens (token, leave_data, action, created_at)
    VALUES (?,?,?,?)
  `, rec.Token, string(raw), string(rec.Action), rec.CreatedAt.UnixMilli())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner, extra ...any) (Record, error) {
	var (
		rec         Record
		raw, action string
		reason      sql.NullString
		createdAt   int64
		processedAt sql.NullInt64
	)
	dest := append([]any{&rec.Token, &raw, &action, &reason, &createdAt, &processedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Record{}, err
	}
	rec.Action = Action(action)
	if reason.Valid {
		rec.ReviewReason = &reason.String
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if processedAt.Valid {
		at := time.UnixMilli(processedAt.Int64).UTC()
		rec.ProcessedAt = &at
	}
	var err error
	rec.Payload, err = decodePayload([]byte(raw))
	return rec, err
}

func (s *SQLiteStore) Get(ctx context.Context, token string) (Record, error) {
	rec, err := scanSQLiteRecord(s.DB.QueryRowContext(ctx, `
    SELECT token, leave_data, action, review_reason, created_at, processed_at
    FROM leave_tokens
    WHERE token = ?
  `, token))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// Transition runs inside an immediate transaction on the single writer connection,
// so the previous action read here cannot change before the conditional update.
func (s *SQLiteStore) Transition(ctx context.Context, p TransitionParams) (Record, Action, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, "", err
	}
	defer func() { _ = tx.Rollback() }()

	var prev string
	err = tx.QueryRowContext(ctx, "SELECT action FROM leave_tokens WHERE token = ?", p.Token).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, "", ErrNotFoundOrExpired
	}
	if err != nil {
		return Record{}, "", err
	}

	var reason any
	if p.ReviewReason != nil {
		reason = *p.ReviewReason
	}
	windowStart := p.WindowStart.UnixMilli()
	rec, err := scanSQLiteRecord(tx.QueryRowContext(ctx, `
    UPDATE leave_tokens
    SET action = ?,
        review_reason = ?,
        processed_at = COALESCE(processed_at, ?)
    WHERE token = ?
      AND (
        (processed_at IS NULL AND created_at >= ?)
        OR (? AND processed_at >= ?)
      )
    RETURNING token, leave_data, action, review_reason, created_at, processed_at
  `, string(p.Target), reason, p.Now.UnixMilli(), p.Token, windowStart, p.AllowGrace, windowStart))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, "", ErrNotFoundOrExpired
	}
	if err != nil {
		return Record{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, "", err
	}
	return rec, Action(prev), nil
}
