package schedule

import "time"

// Remark is attached to a schedule day when an approved leave covers it.
type Remark struct {
	LeaveType  string `json:"leave_type"`
	TimePeriod string `json:"time_period"`
}

type Entry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"userId,omitempty"`
	UserName   string    `json:"userName"`
	Date       time.Time `json:"scheduleDate"`
	ShiftName  string    `json:"shiftName"`
	WeekNumber int       `json:"weekNumber"`
	Year       int       `json:"year"`
	Remark     *Remark   `json:"remark,omitempty"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	UserName  string
	Date      time.Time
	ShiftName string
	CreatedBy string
}

type UpdateInput struct {
	ShiftName string
}
