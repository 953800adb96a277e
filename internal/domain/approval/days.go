package approval

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	fullDay    = decimal.NewFromInt(1)
	halfDay    = decimal.RequireFromString("0.5")
	workingDay = decimal.NewFromInt(8)
)

// PeriodLabel is the human-readable time period of the request.
func (p LeavePayload) PeriodLabel() string {
	switch p.Time {
	case PeriodMorning:
		return "morning"
	case PeriodAfternoon:
		return "afternoon"
	case PeriodCustom:
		if p.CustomTime != nil {
			return p.CustomTime.Start + " - " + p.CustomTime.End
		}
		return "custom"
	default:
		return "full day"
	}
}

// DayFraction is how much of one working day the period covers. Custom spans are
// measured against an eight hour day and capped at one.
func (p LeavePayload) DayFraction() (decimal.Decimal, error) {
	switch p.Time {
	case PeriodFullDay:
		return fullDay, nil
	case PeriodMorning, PeriodAfternoon:
		return halfDay, nil
	case PeriodCustom:
		if p.CustomTime == nil {
			return decimal.Zero, fmt.Errorf("custom period without customTime")
		}
		start, err := time.Parse("15:04", p.CustomTime.Start)
		if err != nil {
			return decimal.Zero, fmt.Errorf("customTime.start: %w", err)
		}
		end, err := time.Parse("15:04", p.CustomTime.End)
		if err != nil {
			return decimal.Zero, fmt.Errorf("customTime.end: %w", err)
		}
		if !end.After(start) {
			return decimal.Zero, fmt.Errorf("customTime ends before it starts")
		}
		hours := decimal.NewFromFloat(end.Sub(start).Hours())
		frac := hours.Div(workingDay).Round(2)
		if frac.GreaterThan(fullDay) {
			return fullDay, nil
		}
		return frac, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown time period %q", p.Time)
	}
}

// TotalDays is the leave taken across every requested day.
func (p LeavePayload) TotalDays() (decimal.Decimal, error) {
	days, err := p.Dates.Days()
	if err != nil {
		return decimal.Zero, err
	}
	frac, err := p.DayFraction()
	if err != nil {
		return decimal.Zero, err
	}
	return frac.Mul(decimal.NewFromInt(int64(len(days)))), nil
}
