package users

import (
	"context"
	"strings"

	"emsys/internal/platform/clock"
)

type Service struct {
	Store StoreAPI
	Clock clock.Clock
}

func NewService(store StoreAPI, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{Store: store, Clock: clk}
}

// Login resolves an SSO identity to an enabled account and records the login time.
func (s *Service) Login(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrNotFound
	}
	u, err := s.Store.FindActiveByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}
	now := s.Clock.Now()
	if err := s.Store.TouchLastLogin(ctx, u.ID, now); err != nil {
		return User{}, err
	}
	u.LastLogin = &now
	return u, nil
}
