package approval

import "strings"

// Validate reports every missing or malformed field at once.
func (p LeavePayload) Validate() error {
	var fields []string
	if strings.TrimSpace(p.Nickname) == "" {
		fields = append(fields, "nickname")
	}
	if strings.TrimSpace(p.LeaveType) == "" {
		fields = append(fields, "leaveType")
	}
	if p.Dates.IsZero() {
		fields = append(fields, "dates")
	} else if _, err := p.Dates.Days(); err != nil {
		fields = append(fields, "dates")
	}
	switch p.Time {
	case PeriodMorning, PeriodAfternoon, PeriodFullDay:
	case PeriodCustom:
		if _, err := p.DayFraction(); err != nil {
			fields = append(fields, "customTime")
		}
	default:
		fields = append(fields, "time")
	}
	if strings.TrimSpace(p.Reason) == "" {
		fields = append(fields, "reason")
	}
	if strings.TrimSpace(p.SubmitTime) == "" {
		fields = append(fields, "submitTime")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
