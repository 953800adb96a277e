package approval

import (
	"encoding/json"
	"time"
)

// CustomTime is the free-form span used with PeriodCustom, as "HH:MM" strings.
type CustomTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// LeavePayload is the leave request stored with an approval token. It is kept
// verbatim as submitted so the decision can be audited later.
type LeavePayload struct {
	Nickname   string      `json:"nickname"`
	LeaveType  string      `json:"leaveType"`
	Dates      Dates       `json:"dates"`
	Time       string      `json:"time"`
	CustomTime *CustomTime `json:"customTime,omitempty"`
	Reason     string      `json:"reason"`
	SubmitTime string      `json:"submitTime"`
}

type Record struct {
	Token        string       `json:"token"`
	Payload      LeavePayload `json:"leave_data"`
	Action       Action       `json:"action"`
	ReviewReason *string      `json:"review_reason"`
	CreatedAt    time.Time    `json:"created_at"`
	ProcessedAt  *time.Time   `json:"processed_at"`
}

// View is the read-only inspection result. Actionable only reflects the stored
// state; WithinWindow is a hint for the caller, the window itself is enforced by
// Transition.
type View struct {
	Record       Record `json:"record"`
	WithinWindow bool   `json:"withinWindow"`
	Actionable   bool   `json:"actionable"`
}

func (v View) Valid() bool {
	return v.Actionable && v.WithinWindow
}

// Result is what a successful transition returns. Previous differs from pending
// only when the record was already decided and the grace period allowed a repeat.
type Result struct {
	Record   Record `json:"record"`
	Previous Action `json:"previousAction"`
}

// Changed reports whether the transition altered the stored action. A repeated
// identical decision inside the grace period is accepted but changes nothing.
func (r Result) Changed() bool {
	return r.Previous != r.Record.Action
}

// Overwrote reports whether an earlier decision was replaced by a different one.
func (r Result) Overwrote() bool {
	return r.Previous.Terminal() && r.Changed()
}

type TransitionParams struct {
	Token        string
	Target       Action
	ReviewReason *string
	Now          time.Time
	WindowStart  time.Time
	AllowGrace   bool
}

func encodePayload(p LeavePayload) ([]byte, error) {
	return json.Marshal(p)
}

func decodePayload(raw []byte) (LeavePayload, error) {
	var p LeavePayload
	if len(raw) == 0 {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}
