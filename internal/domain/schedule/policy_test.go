package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsys/internal/platform/clock"
)

const sixPM = 18 * time.Hour

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestIsLockedCutoffScenario(t *testing.T) {
	nextMonday := at(2025, time.June, 9, 0, 0)

	assert.True(t, IsLocked(nextMonday, at(2025, time.June, 6, 18, 1), 3, sixPM, 1))
	assert.False(t, IsLocked(nextMonday, at(2025, time.June, 6, 17, 59), 3, sixPM, 1))
}

func TestIsLocked(t *testing.T) {
	tests := []struct {
		name       string
		target     time.Time
		now        time.Time
		leadDays   int
		lockTime   time.Duration
		weeksAhead int
		want       bool
	}{
		{name: "past day", target: at(2025, time.June, 5, 0, 0), now: at(2025, time.June, 6, 10, 0), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: true},
		{name: "today in current week", target: at(2025, time.June, 6, 0, 0), now: at(2025, time.June, 6, 10, 0), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: true},
		{name: "exactly at cutoff", target: at(2025, time.June, 10, 0, 0), now: at(2025, time.June, 6, 18, 0), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: false},
		{name: "week after next", target: at(2025, time.June, 16, 0, 0), now: at(2025, time.June, 6, 19, 0), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: false},
		{name: "cutoff passed but beyond window", target: at(2025, time.June, 16, 0, 0), now: at(2025, time.June, 6, 19, 0), leadDays: 10, lockTime: sixPM, weeksAhead: 1, want: false},
		{name: "cutoff passed inside wider window", target: at(2025, time.June, 16, 0, 0), now: at(2025, time.June, 6, 19, 0), leadDays: 10, lockTime: sixPM, weeksAhead: 2, want: true},
		{name: "zero lead locks at week start", target: at(2025, time.June, 9, 0, 0), now: at(2025, time.June, 9, 0, 1), leadDays: 0, lockTime: 0, weeksAhead: 0, want: true},
		{name: "sunday belongs to previous iso week", target: at(2025, time.June, 15, 0, 0), now: at(2025, time.June, 6, 18, 1), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: true},
		{name: "time of day on target ignored", target: at(2025, time.June, 9, 23, 30), now: at(2025, time.June, 6, 17, 0), leadDays: 3, lockTime: sixPM, weeksAhead: 1, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := IsLocked(tc.target, tc.now, tc.leadDays, tc.lockTime, tc.weeksAhead)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsLockedMonotonic(t *testing.T) {
	configs := []struct {
		leadDays   int
		lockTime   time.Duration
		weeksAhead int
	}{
		{3, sixPM, 1},
		{0, 0, 0},
		{10, 9*time.Hour + 30*time.Minute, 2},
		{1, 23*time.Hour + 59*time.Minute, 4},
	}
	start := at(2025, time.May, 26, 0, 0)

	for _, cfg := range configs {
		for d := 0; d < 42; d++ {
			target := start.AddDate(0, 0, d)
			locked := false
			for now := start.AddDate(0, 0, -14); now.Before(start.AddDate(0, 0, 56)); now = now.Add(37 * time.Minute) {
				got := IsLocked(target, now, cfg.leadDays, cfg.lockTime, cfg.weeksAhead)
				if locked && !got {
					t.Fatalf("target %s unlocked again at %s (cfg %+v)", target.Format(DateLayout), now, cfg)
				}
				locked = got
			}
			require.True(t, locked, "target %s must end up locked", target.Format(DateLayout))
		}
	}
}

func TestEvaluateBoundaries(t *testing.T) {
	status := Evaluate(at(2025, time.June, 11, 0, 0), at(2025, time.June, 4, 12, 0), 3, sixPM, 1)

	assert.Equal(t, at(2025, time.June, 9, 0, 0), status.WeekStart)
	assert.Equal(t, at(2025, time.June, 6, 18, 0), status.Cutoff)
	assert.Equal(t, at(2025, time.June, 16, 0, 0), status.WindowEnd)
	assert.True(t, status.InWindow)
	assert.False(t, status.Past)
	assert.False(t, status.Locked)
}

func TestPolicyCheck(t *testing.T) {
	clk := clock.NewManual(at(2025, time.June, 6, 17, 59))
	policy := Policy{Clock: clk, LeadDays: 3, LockTime: sixPM, WeeksAhead: 1}
	target := at(2025, time.June, 9, 0, 0)

	require.NoError(t, policy.Check(target))

	clk.Advance(2 * time.Minute)
	err := policy.Check(target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, at(2025, time.June, 6, 18, 0), locked.Cutoff)
	assert.Contains(t, locked.Error(), "2025-06-09")
}

func TestPolicyUsesConfiguredLocation(t *testing.T) {
	taipei := time.FixedZone("CST", 8*60*60)
	clk := clock.NewManual(time.Date(2025, time.June, 6, 9, 59, 0, 0, time.UTC))
	policy := Policy{Clock: clk, LeadDays: 3, LockTime: sixPM, WeeksAhead: 1, Location: taipei}
	target := at(2025, time.June, 9, 0, 0)

	assert.False(t, policy.Status(target).Locked, "17:59 local")
	clk.Advance(2 * time.Minute)
	assert.True(t, policy.Status(target).Locked, "18:01 local")
}
