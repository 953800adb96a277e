package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrLocked       = errors.New("schedule locked")
	ErrNotFound     = errors.New("schedule entry not found")
	ErrDuplicate    = errors.New("schedule entry already exists for this date")
	ErrInvalidInput = errors.New("invalid schedule input")
)

// LockedError reports which date was refused and when it locked.
type LockedError struct {
	Date   time.Time
	Cutoff time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("schedule for %s is locked since %s", e.Date.Format(DateLayout), e.Cutoff.Format("2006-01-02 15:04"))
}

func (e *LockedError) Unwrap() error {
	return ErrLocked
}
