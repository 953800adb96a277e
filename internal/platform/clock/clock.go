// Package clock provides the time source used by every token and lock decision,
// plus the window arithmetic shared between them.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Manual is a settable clock for tests and replay tooling.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Window is a trailing validity span measured back from "now".
type Window time.Duration

// Start returns the earliest instant still inside the window.
func (w Window) Start(now time.Time) time.Time {
	return now.Add(-time.Duration(w))
}

// Contains reports whether t is no older than the window at now.
func (w Window) Contains(t, now time.Time) bool {
	return !t.Before(w.Start(now))
}

func (w Window) Duration() time.Duration {
	return time.Duration(w)
}

// ExpiresAt returns the expiry instant for something issued at now with the given ttl.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl)
}

// Expired reports whether now is strictly past exp.
func Expired(exp, now time.Time) bool {
	return now.After(exp)
}

// DayStart truncates t to midnight in its own location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns midnight of the ISO week's Monday containing t.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
