package users

import "errors"

// ErrNotFound covers both unknown and disabled accounts.
var ErrNotFound = errors.New("active user not found")
