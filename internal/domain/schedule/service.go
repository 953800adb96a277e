package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Service struct {
	Store  StoreAPI
	Policy Policy
}

func NewService(store StoreAPI, policy Policy) *Service {
	return &Service{Store: store, Policy: policy}
}

func (s *Service) LockStatus(day time.Time) LockStatus {
	return s.Policy.Status(day)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Entry, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.ShiftName = strings.TrimSpace(in.ShiftName)
	if in.UserName == "" || in.ShiftName == "" || in.Date.IsZero() {
		return Entry{}, fmt.Errorf("%w: userName, shiftName and scheduleDate are required", ErrInvalidInput)
	}
	if err := s.Policy.Check(in.Date); err != nil {
		return Entry{}, err
	}

	day := dateOnly(in.Date)
	year, week := day.ISOWeek()
	now := s.Policy.Clock.Now()
	entry := Entry{
		UserName:   in.UserName,
		Date:       day,
		ShiftName:  in.ShiftName,
		WeekNumber: week,
		Year:       year,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := s.Store.Create(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id
	return entry, nil
}

// Update changes the shift of an existing day. The stored date is the one checked
// against the lock, so a caller cannot bypass it by naming a different date.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Entry, error) {
	shift := strings.TrimSpace(in.ShiftName)
	if shift == "" {
		return Entry{}, fmt.Errorf("%w: shiftName is required", ErrInvalidInput)
	}
	existing, err := s.Store.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if err := s.Policy.Check(existing.Date); err != nil {
		return Entry{}, err
	}
	now := s.Policy.Clock.Now()
	if err := s.Store.UpdateShift(ctx, id, shift, now); err != nil {
		return Entry{}, err
	}
	existing.ShiftName = shift
	existing.UpdatedAt = now
	return existing, nil
}

func (s *Service) ListWeek(ctx context.Context, userName string, anyDay time.Time) ([]Entry, error) {
	start := dateOnly(anyDay)
	start = start.AddDate(0, 0, -((int(start.Weekday()) + 6) % 7))
	return s.Store.ListByUser(ctx, userName, start, start.AddDate(0, 0, 6))
}

// ApplyLeave marks every leave day on the user's schedule. Lock rules do not apply:
// an approved leave is a manager decision. Per-day failures are logged and counted.
func (s *Service) ApplyLeave(ctx context.Context, userName string, days []time.Time, remark Remark) (int, error) {
	now := s.Policy.Clock.Now()
	applied := 0
	var firstErr error
	for _, day := range days {
		if err := s.Store.ApplyLeave(ctx, userName, dateOnly(day), remark, now); err != nil {
			slog.Warn("apply leave to schedule failed", "user", userName, "date", day.Format(DateLayout), "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}
	return applied, firstErr
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
