package schedule

import (
	"context"
	"time"
)

type StoreAPI interface {
	Get(ctx context.Context, id int64) (Entry, error)
	ListByUser(ctx context.Context, userName string, from, to time.Time) ([]Entry, error)
	Create(ctx context.Context, e Entry) (int64, error)
	UpdateShift(ctx context.Context, id int64, shiftName string, at time.Time) error
	// ApplyLeave sets the remark on the user's schedule day, creating the day if needed.
	ApplyLeave(ctx context.Context, userName string, day time.Time, remark Remark, at time.Time) error
}
