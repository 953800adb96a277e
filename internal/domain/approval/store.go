package approval

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"emsys/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, rec Record) error {
	raw, err := encodePayload(rec.Payload)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO leave_tokens (token, leave_data, action, created_at)
    VALUES ($1,$2,$3,$4)
  `, rec.Token, raw, string(rec.Action), rec.CreatedAt)
	return err
}

func (s *Store) Get(ctx context.Context, token string) (Record, error) {
	var (
		rec    Record
		raw    []byte
		action string
	)
	err := s.DB.QueryRow(ctx, `
    SELECT token::text, leave_data, action, review_reason, created_at, processed_at
    FROM leave_tokens
    WHERE token = $1
  `, token).Scan(&rec.Token, &raw, &action, &rec.ReviewReason, &rec.CreatedAt, &rec.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.Action = Action(action)
	rec.Payload, err = decodePayload(raw)
	return rec, err
}

// Transition locks the row in the CTE, so the previous action it reports is the
// one this statement overwrote even under concurrent decisions.
func (s *Store) Transition(ctx context.Context, p TransitionParams) (Record, Action, error) {
	var (
		rec          Record
		raw          []byte
		action, prev string
	)
	err := s.DB.QueryRow(ctx, `
    WITH prev AS (
      SELECT token, action FROM leave_tokens WHERE token = $1 FOR UPDATE
    )
    UPDATE leave_tokens t
    SET action = $2,
        review_reason = $3,
        processed_at = COALESCE(t.processed_at, $4)
    FROM prev
    WHERE t.token = prev.token
      AND (
        (t.processed_at IS NULL AND t.created_at >= $5)
        OR ($6 AND t.processed_at >= $5)
      )
    RETURNING t.token::text, t.leave_data, t.action, t.review_reason, t.created_at, t.processed_at, prev.action
  `, p.Token, string(p.Target), p.ReviewReason, p.Now, p.WindowStart, p.AllowGrace).
		Scan(&rec.Token, &raw, &action, &rec.ReviewReason, &rec.CreatedAt, &rec.ProcessedAt, &prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, "", ErrNotFoundOrExpired
	}
	if err != nil {
		return Record{}, "", err
	}
	rec.Action = Action(action)
	rec.Payload, err = decodePayload(raw)
	return rec, Action(prev), err
}
