package schedule

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

const sqliteEntryColumns = "id, user_id, user_name_snapshot, schedule_date, shift_name, week_number, year, remark, created_by, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row rowScanner) (Entry, error) {
	var (
		e                    Entry
		userID               sql.NullInt64
		day                  string
		shift, remarkRaw     sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&e.ID, &userID, &e.UserName, &day, &shift, &e.WeekNumber, &e.Year, &remarkRaw, &e.CreatedBy, &createdAt, &updatedAt); err != nil {
		return Entry{}, err
	}
	var err error
	e.Date, err = time.Parse(DateLayout, day)
	if err != nil {
		return Entry{}, err
	}
	if userID.Valid {
		e.UserID = &userID.Int64
	}
	e.ShiftName = shift.String
	if remarkRaw.Valid && remarkRaw.String != "" {
		var r Remark
		if err := json.Unmarshal([]byte(remarkRaw.String), &r); err != nil {
			return Entry{}, err
		}
		e.Remark = &r
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Entry, error) {
	e, err := scanSQLiteEntry(s.DB.QueryRowContext(ctx, "SELECT "+sqliteEntryColumns+" FROM schedules WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

func (s *SQLiteStore) Create(ctx context.Context, e Entry) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
    INSERT INTO schedules (user_id, user_name_snapshot, schedule_date, shift_name, week_number, year, created_by, created_at, updated_at)
    VALUES ((SELECT id FROM users WHERE nickname = ? LIMIT 1), ?, ?, ?, ?, ?, ?, ?, ?)
  `, e.UserName, e.UserName, e.Date.Format(DateLayout), e.ShiftName, e.WeekNumber, e.Year, e.CreatedBy, e.CreatedAt.UnixMilli(), e.CreatedAt.UnixMilli())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateShift(ctx context.Context, id int64, shiftName string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, "UPDATE schedules SET shift_name = ?, updated_at = ? WHERE id = ?", shiftName, at.UnixMilli(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ApplyLeave(ctx context.Context, userName string, day time.Time, remark Remark, at time.Time) error {
	raw, err := json.Marshal(remark)
	if err != nil {
		return err
	}
	year, week := day.ISOWeek()
	_, err = s.DB.ExecContext(ctx, `
    INSERT INTO schedules (user_id, user_name_snapshot, schedule_date, week_number, year, remark, created_at, updated_at)
    VALUES ((SELECT id FROM users WHERE nickname = ? LIMIT 1), ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT (user_name_snapshot, schedule_date)
    DO UPDATE SET remark = excluded.remark, updated_at = excluded.updated_at
  `, userName, userName, day.Format(DateLayout), week, year, string(raw), at.UnixMilli(), at.UnixMilli())
	return err
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userName string, from, to time.Time) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT `+sqliteEntryColumns+`
    FROM schedules
    WHERE user_name_snapshot = ? AND schedule_date BETWEEN ? AND ?
    ORDER BY schedule_date
  `, userName, from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
