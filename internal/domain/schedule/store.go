package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"emsys/internal/platform/querier"
)

const uniqueViolation = "23505"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const entryColumns = "id, user_id, user_name_snapshot, schedule_date, shift_name, week_number, year, remark, created_by, created_at, updated_at"

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e         Entry
		shift     *string
		remarkRaw []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.UserName, &e.Date, &shift, &e.WeekNumber, &e.Year, &remarkRaw, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	if shift != nil {
		e.ShiftName = *shift
	}
	if len(remarkRaw) > 0 {
		var r Remark
		if err := json.Unmarshal(remarkRaw, &r); err != nil {
			return Entry{}, err
		}
		e.Remark = &r
	}
	return e, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	e, err := scanEntry(s.DB.QueryRow(ctx, "SELECT "+entryColumns+" FROM schedules WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *Store) ListByUser(ctx context.Context, userName string, from, to time.Time) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+entryColumns+`
    FROM schedules
    WHERE user_name_snapshot = $1 AND schedule_date BETWEEN $2 AND $3
    ORDER BY schedule_date
  `, userName, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, e Entry) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO schedules (user_id, user_name_snapshot, schedule_date, shift_name, week_number, year, created_by, created_at, updated_at)
    VALUES ((SELECT id FROM users WHERE nickname = $1 LIMIT 1), $1, $2, $3, $4, $5, $6, $7, $7)
    RETURNING id
  `, e.UserName, e.Date, e.ShiftName, e.WeekNumber, e.Year, e.CreatedBy, e.CreatedAt).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return 0, ErrDuplicate
	}
	return id, err
}

func (s *Store) UpdateShift(ctx context.Context, id int64, shiftName string, at time.Time) error {
	tag, err := s.DB.Exec(ctx, "UPDATE schedules SET shift_name = $1, updated_at = $2 WHERE id = $3", shiftName, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ApplyLeave(ctx context.Context, userName string, day time.Time, remark Remark, at time.Time) error {
	raw, err := json.Marshal(remark)
	if err != nil {
		return err
	}
	year, week := day.ISOWeek()
	_, err = s.DB.Exec(ctx, `
    INSERT INTO schedules (user_id, user_name_snapshot, schedule_date, week_number, year, remark, created_at, updated_at)
    VALUES ((SELECT id FROM users WHERE nickname = $1 LIMIT 1), $1, $2, $3, $4, $5, $6, $6)
    ON CONFLICT (user_name_snapshot, schedule_date)
    DO UPDATE SET remark = EXCLUDED.remark, updated_at = EXCLUDED.updated_at
  `, userName, day, week, year, raw, at)
	return err
}
