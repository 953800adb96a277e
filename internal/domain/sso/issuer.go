package sso

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"emsys/internal/platform/clock"
)

const keyInfo = "emsys sso one-time login v1"

// Issuer mints single-use login tokens for chat users and redeems them exactly once.
type Issuer struct {
	key   []byte
	ttl   time.Duration
	clock clock.Clock
	guard ReplayGuard
}

// NewIssuer derives the signing key from secret. An empty secret yields a random
// per-process key, which invalidates outstanding links on restart.
func NewIssuer(secret string, ttl time.Duration, clk clock.Clock, guard ReplayGuard) (*Issuer, error) {
	if ttl <= 0 {
		return nil, errors.New("sso token ttl must be positive")
	}
	if guard == nil {
		return nil, errors.New("sso replay guard is required")
	}
	if clk == nil {
		clk = clock.System{}
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Issuer{key: key, ttl: ttl, clock: clk, guard: guard}, nil
}

func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("sso key: %w", err)
		}
		return key, nil
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("sso key: %w", err)
	}
	return key, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Issue(ctx context.Context, id Identity) (string, error) {
	if strings.TrimSpace(id.Username) == "" {
		return "", ErrInvalidIdentity
	}
	now := i.clock.Now()
	claims := Claims{
		UserID:      id.UserID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Type:        TokenTypeOneTime,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(clock.ExpiresAt(now, i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// VerifyAndConsume checks signature, type and expiry, then marks the token used.
// The guard's check-and-set is the only point of contention, so concurrent
// redemptions of one token produce exactly one success.
func (i *Issuer) VerifyAndConsume(ctx context.Context, token string) (Identity, error) {
	now := i.clock.Now()
	claims, err := i.verify(token)
	if err != nil {
		return Identity{}, err
	}
	if clock.Expired(claims.ExpiresAt.Time, now) {
		return Identity{}, ErrExpired
	}
	ok, err := i.guard.Consume(ctx, claims.ID, claims.ExpiresAt.Time, now)
	if err != nil {
		return Identity{}, fmt.Errorf("consume sso token: %w", err)
	}
	if !ok {
		return Identity{}, ErrAlreadyUsed
	}
	return claims.Identity(), nil
}

// PeekUnverified decodes a token without checking its signature and reports its
// status. It never consumes the token, so link previews and HEAD requests are safe.
// Never grant access from its result.
func (i *Issuer) PeekUnverified(ctx context.Context, token string) (TokenInfo, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{Status: StatusMalformed}, nil
	}
	if claims.Type != TokenTypeOneTime || claims.ID == "" || claims.ExpiresAt == nil {
		return TokenInfo{Status: StatusMalformed}, nil
	}
	info := TokenInfo{
		JTI:         claims.ID,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		ExpiresAt:   claims.ExpiresAt.Time,
		Status:      StatusValid,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	now := i.clock.Now()
	if clock.Expired(info.ExpiresAt, now) {
		info.Status = StatusExpired
		return info, nil
	}
	used, err := i.guard.Seen(ctx, claims.ID, now)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("peek sso token: %w", err)
	}
	if used {
		info.Status = StatusUsed
	}
	return info, nil
}

// verify checks signature and structure. Expiry is left to the caller so it is
// judged against the injected clock rather than the parser's wall clock.
func (i *Issuer) verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.Type != TokenTypeOneTime || claims.ID == "" || claims.Username == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return claims, nil
}
