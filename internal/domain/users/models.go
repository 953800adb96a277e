package users

import "time"

// Account states. Only StatusActive and StatusPasswordReset may log in.
const (
	StatusDisabled      = 1
	StatusActive        = 2
	StatusPasswordReset = 3
	StatusBanned        = 4
	StatusFrozen        = 5
)

type User struct {
	ID        int64      `json:"id"`
	UserCode  string     `json:"userCode"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname"`
	Email     string     `json:"email"`
	RoleLevel int        `json:"roleLevel"`
	Status    int        `json:"status"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}
