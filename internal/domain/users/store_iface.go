package users

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindActiveByUsername(ctx context.Context, username string) (User, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}
