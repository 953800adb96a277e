package sso

import "errors"

var (
	ErrMalformed       = errors.New("sso token malformed")
	ErrExpired         = errors.New("sso token expired")
	ErrAlreadyUsed     = errors.New("sso token already used")
	ErrInvalidIdentity = errors.New("sso identity requires a username")
)
