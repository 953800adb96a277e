package approval

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var errBadDates = errors.New("dates must be a date string, a list of dates or {start, end}")

// Dates accepts the three shapes clients send: "2025-06-10", ["2025-06-10", ...]
// or {"start": "...", "end": "..."}. It marshals back to the shape it was given.
type Dates struct {
	Single string
	List   []string
	Start  string
	End    string
}

type dateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func SingleDate(day string) Dates {
	return Dates{Single: day}
}

func DateList(days ...string) Dates {
	return Dates{List: days}
}

func DateRange(start, end string) Dates {
	return Dates{Start: start, End: end}
}

func (d Dates) IsZero() bool {
	return d.Single == "" && len(d.List) == 0 && d.Start == "" && d.End == ""
}

func (d Dates) isRange() bool {
	return d.Start != "" || d.End != ""
}

func (d Dates) MarshalJSON() ([]byte, error) {
	switch {
	case d.Single != "":
		return json.Marshal(d.Single)
	case d.List != nil:
		return json.Marshal(d.List)
	case d.isRange():
		return json.Marshal(dateRange{Start: d.Start, End: d.End})
	default:
		return []byte("null"), nil
	}
}

func (d *Dates) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = Dates{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &d.Single)
	case '[':
		return json.Unmarshal(data, &d.List)
	case '{':
		var r dateRange
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		d.Start, d.End = r.Start, r.End
		return nil
	default:
		return errBadDates
	}
}

// Days expands the dates into calendar days (UTC midnight), in order, without duplicates.
func (d Dates) Days() ([]time.Time, error) {
	switch {
	case d.Single != "":
		day, err := parseDay(d.Single)
		if err != nil {
			return nil, err
		}
		return []time.Time{day}, nil
	case len(d.List) > 0:
		out := make([]time.Time, 0, len(d.List))
		seen := make(map[time.Time]struct{}, len(d.List))
		for _, raw := range d.List {
			day, err := parseDay(raw)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[day]; ok {
				continue
			}
			seen[day] = struct{}{}
			out = append(out, day)
		}
		return out, nil
	case d.isRange():
		start, end := d.Start, d.End
		if start == "" {
			start = end
		}
		if end == "" {
			end = start
		}
		from, err := parseDay(start)
		if err != nil {
			return nil, err
		}
		to, err := parseDay(end)
		if err != nil {
			return nil, err
		}
		if to.Before(from) {
			return nil, fmt.Errorf("date range ends before it starts: %s to %s", start, end)
		}
		var out []time.Time
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if len(out) == maxRangeDays {
				return nil, fmt.Errorf("date range longer than %d days", maxRangeDays)
			}
			out = append(out, day)
		}
		return out, nil
	default:
		return nil, errBadDates
	}
}

// String renders the dates for chat messages and receipts.
func (d Dates) String() string {
	switch {
	case d.Single != "":
		return displayDay(d.Single)
	case len(d.List) > 0:
		parts := make([]string, 0, len(d.List))
		for _, raw := range d.List {
			parts = append(parts, displayDay(raw))
		}
		return strings.Join(parts, ", ")
	case d.isRange():
		start, end := displayDay(d.Start), displayDay(d.End)
		switch {
		case start != "" && end != "" && start != end:
			return start + " to " + end
		case start != "":
			return start
		default:
			return end
		}
	default:
		return ""
	}
}

var dayLayouts = []string{
	dayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseDay reads a calendar day. Timestamps keep the calendar day they were
// written with, whatever their offset.
func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func displayDay(raw string) string {
	if raw == "" {
		return ""
	}
	day, err := parseDay(raw)
	if err != nil {
		return raw
	}
	return day.Format(dayLayout)
}

// FormatSubmitTime renders an ISO submission timestamp as "2006-01-02 15:04" in loc.
func FormatSubmitTime(raw string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04")
}
