package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role levels carried on the session. Level 5 administers the deployment.
const (
	RoleMember = 1
	RoleAdmin  = 5
)

// Claims identify a logged-in user on the long-lived session cookie.
type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	RoleLevel int    `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID    string
	Username  string
	Nickname  string
	RoleLevel int
}

func (c *Claims) User() UserContext {
	return UserContext{
		UserID:    c.UserID,
		Username:  c.Username,
		Nickname:  c.Nickname,
		RoleLevel: c.RoleLevel,
	}
}
