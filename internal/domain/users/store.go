package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"emsys/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT id, user_code, username, nickname, email, role_level, status, last_login
    FROM users
    WHERE username = $1 AND status IN ($2, $3)
  `, username, StatusActive, StatusPasswordReset).Scan(&u.ID, &u.UserCode, &u.Username, &u.Nickname, &u.Email, &u.RoleLevel, &u.Status, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = $1, updated_at = $1 WHERE id = $2", at, userID)
	return err
}
