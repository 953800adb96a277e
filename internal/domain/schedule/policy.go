package schedule

import (
	"time"

	"emsys/internal/platform/clock"
)

const DateLayout = "2006-01-02"

// LockStatus is the computed lock boundary for one calendar date.
type LockStatus struct {
	TargetDate time.Time `json:"targetDate"`
	WeekStart  time.Time `json:"weekStart"`
	Cutoff     time.Time `json:"cutoff"`
	WindowEnd  time.Time `json:"windowEnd"`
	Past       bool      `json:"past"`
	InWindow   bool      `json:"inWindow"`
	Locked     bool      `json:"locked"`
}

// Evaluate computes the lock boundary of target as seen at now. The calendar day of
// target is read in now's location.
//
// Past days are always locked. Days whose ISO week starts on or after WindowEnd
// (the Monday weeksAhead+1 weeks after the current one) are never locked. Anything
// else locks once now is strictly after Cutoff, which is leadDays before the
// target week's Monday at lockTime.
func Evaluate(target, now time.Time, leadDays int, lockTime time.Duration, weeksAhead int) LockStatus {
	loc := now.Location()
	day := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, loc)
	today := clock.DayStart(now)
	weekStart := clock.WeekStart(day)

	cutoffDay := weekStart.AddDate(0, 0, -leadDays)
	lockTime = lockTime % (24 * time.Hour)
	cutoff := time.Date(cutoffDay.Year(), cutoffDay.Month(), cutoffDay.Day(),
		int(lockTime/time.Hour), int(lockTime%time.Hour/time.Minute), int(lockTime%time.Minute/time.Second), 0, loc)

	status := LockStatus{
		TargetDate: day,
		WeekStart:  weekStart,
		Cutoff:     cutoff,
		WindowEnd:  clock.WeekStart(today).AddDate(0, 0, 7*(weeksAhead+1)),
	}
	switch {
	case day.Before(today):
		status.Past = true
		status.Locked = true
	case !weekStart.Before(status.WindowEnd):
		status.Locked = false
	default:
		status.InWindow = true
		status.Locked = now.After(cutoff)
	}
	return status
}

// IsLocked reports whether target can no longer be edited at now. Once true for a
// given target and configuration it stays true for every later now.
func IsLocked(target, now time.Time, leadDays int, lockTime time.Duration, weeksAhead int) bool {
	return Evaluate(target, now, leadDays, lockTime, weeksAhead).Locked
}

// Policy binds the lock rule to a clock and configuration.
type Policy struct {
	Clock      clock.Clock
	LeadDays   int
	LockTime   time.Duration
	WeeksAhead int
	Location   *time.Location
}

func (p Policy) now() time.Time {
	now := p.Clock.Now()
	if p.Location != nil {
		now = now.In(p.Location)
	}
	return now
}

func (p Policy) Status(target time.Time) LockStatus {
	return Evaluate(target, p.now(), p.LeadDays, p.LockTime, p.WeeksAhead)
}

// Check returns a *LockedError when target is locked.
func (p Policy) Check(target time.Time) error {
	status := p.Status(target)
	if status.Locked {
		return &LockedError{Date: status.TargetDate, Cutoff: status.Cutoff}
	}
	return nil
}
