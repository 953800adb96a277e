package sso

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsys/internal/platform/clock"
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestIssuer(t *testing.T, guard ReplayGuard) (*Issuer, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(t0)
	issuer, err := NewIssuer("sso-test-secret", 15*time.Minute, clk, guard)
	require.NoError(t, err)
	return issuer, clk
}

func alice() Identity {
	return Identity{UserID: "42", Username: "alice", DisplayName: "Alice", Email: "alice@example.com"}
}

func TestIssueAndConsume(t *testing.T) {
	ctx := context.Background()
	issuer, _ := newTestIssuer(t, NewMemoryGuard())

	token, err := issuer.Issue(ctx, alice())
	require.NoError(t, err)

	id, err := issuer.VerifyAndConsume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice(), id)

	_, err = issuer.VerifyAndConsume(ctx, token)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestIssueRequiresUsername(t *testing.T) {
	issuer, _ := newTestIssuer(t, NewMemoryGuard())
	_, err := issuer.Issue(context.Background(), Identity{UserID: "1"})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestIssueSetsClaims(t *testing.T) {
	issuer, _ := newTestIssuer(t, NewMemoryGuard())
	token, err := issuer.Issue(context.Background(), alice())
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeOneTime, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, t0, claims.IssuedAt.Time.UTC())
	assert.Equal(t, t0.Add(15*time.Minute), claims.ExpiresAt.Time.UTC())

	other, err := issuer.Issue(context.Background(), alice())
	require.NoError(t, err)
	otherClaims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(other, otherClaims)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID)
}

func TestVerifyExpired(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard()
	issuer, clk := newTestIssuer(t, guard)

	token, err := issuer.Issue(ctx, alice())
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	_, err = issuer.VerifyAndConsume(ctx, token)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Zero(t, guard.Len(), "expired tokens must not be recorded")

	_, err = issuer.VerifyAndConsume(ctx, token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyAtExactExpiry(t *testing.T) {
	ctx := context.Background()
	issuer, clk := newTestIssuer(t, NewMemoryGuard())

	token, err := issuer.Issue(ctx, alice())
	require.NoError(t, err)

	clk.Advance(15 * time.Minute)
	_, err = issuer.VerifyAndConsume(ctx, token)
	assert.NoError(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	ctx := context.Background()
	issuer, _ := newTestIssuer(t, NewMemoryGuard())

	foreign, err := NewIssuer("another-secret", 15*time.Minute, clock.NewManual(t0), NewMemoryGuard())
	require.NoError(t, err)
	forged, err := foreign.Issue(ctx, alice())
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: "alice",
		Type:     "session",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}).SignedString(issuer.key)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "alice",
		Type:     TokenTypeOneTime,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-2",
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "foreign key", token: forged},
		{name: "wrong type", token: wrongType},
		{name: "none alg", token: noneAlg},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.VerifyAndConsume(ctx, tc.token)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestPeekUnverifiedNeverConsumes(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard()
	issuer, clk := newTestIssuer(t, guard)

	token, err := issuer.Issue(ctx, alice())
	require.NoError(t, err)

	for range 3 {
		info, err := issuer.PeekUnverified(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, StatusValid, info.Status)
		assert.Equal(t, "alice", info.Username)
	}
	assert.Zero(t, guard.Len())

	_, err = issuer.VerifyAndConsume(ctx, token)
	require.NoError(t, err)

	info, err := issuer.PeekUnverified(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, info.Status)

	clk.Advance(time.Hour)
	info, err = issuer.PeekUnverified(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, info.Status)

	info, err = issuer.PeekUnverified(ctx, "garbage")
	require.NoError(t, err)
	assert.Equal(t, StatusMalformed, info.Status)
}

func TestConcurrentConsumeExactlyOnce(t *testing.T) {
	guards := map[string]func(t *testing.T) ReplayGuard{
		"memory": func(t *testing.T) ReplayGuard { return NewMemoryGuard() },
		"sqlite": func(t *testing.T) ReplayGuard { return newSQLiteGuard(t) },
	}

	for name, build := range guards {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			issuer, _ := newTestIssuer(t, build(t))
			token, err := issuer.Issue(ctx, alice())
			require.NoError(t, err)

			const callers = 32
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				used      int
			)
			start := make(chan struct{})
			for range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := issuer.VerifyAndConsume(ctx, token)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, ErrAlreadyUsed):
						used++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, callers-1, used)
		})
	}
}
