package users

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

func (s *SQLiteStore) FindActiveByUsername(ctx context.Context, username string) (User, error) {
	var (
		u         User
		lastLogin sql.NullInt64
	)
	err := s.DB.QueryRowContext(ctx, `
    SELECT id, user_code, username, nickname, email, role_level, status, last_login
    FROM users
    WHERE username = ? AND status IN (?, ?)
  `, username, StatusActive, StatusPasswordReset).Scan(&u.ID, &u.UserCode, &u.Username, &u.Nickname, &u.Email, &u.RoleLevel, &u.Status, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if lastLogin.Valid {
		at := time.UnixMilli(lastLogin.Int64).UTC()
		u.LastLogin = &at
	}
	return u, nil
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UnixMilli(), userID)
	return err
}

// Insert adds a directory entry. Used by seed tooling and tests.
func (s *SQLiteStore) Insert(ctx context.Context, u User) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
    INSERT INTO users (user_code, username, nickname, email, role_level, status)
    VALUES (?,?,?,?,?,?)
  `, u.UserCode, u.Username, u.Nickname, u.Email, u.RoleLevel, u.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
