package sso

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTypeOneTime = "one_time"

type TokenStatus string

const (
	StatusValid     TokenStatus = "valid"
	StatusExpired   TokenStatus = "expired"
	StatusUsed      TokenStatus = "used"
	StatusMalformed TokenStatus = "malformed"
)

// Identity is the chat-side user a login link is minted for.
type Identity struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type Claims struct {
	UserID      string `json:"uid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Type        string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:      c.UserID,
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Email:       c.Email,
	}
}

// TokenInfo is the unverified view of a login token, safe to show without redeeming it.
type TokenInfo struct {
	JTI         string      `json:"jti,omitempty"`
	Username    string      `json:"username,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	IssuedAt    time.Time   `json:"issuedAt,omitzero"`
	ExpiresAt   time.Time   `json:"expiresAt,omitzero"`
	Status      TokenStatus `json:"status"`
}
