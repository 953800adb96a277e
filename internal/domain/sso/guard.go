package sso

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"emsys/internal/platform/clock"
)

// ReplayGuard remembers redeemed token ids until the token itself expires.
// Consume must be an atomic check-and-set: for a given jti exactly one caller
// ever observes true.
type ReplayGuard interface {
	Consume(ctx context.Context, jti string, expiresAt, now time.Time) (bool, error)
	Seen(ctx context.Context, jti string, now time.Time) (bool, error)
	Purge(ctx context.Context, now time.Time) (int64, error)
	Reset(ctx context.Context) error
}

// MemoryGuard is a process-local ReplayGuard. Only safe for single-instance deployments.
type MemoryGuard struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{used: make(map[string]time.Time)}
}

func (g *MemoryGuard) Consume(ctx context.Context, jti string, expiresAt, now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if exp, ok := g.used[jti]; ok && !now.After(exp) {
		return false, nil
	}
	g.used[jti] = expiresAt
	return true, nil
}

func (g *MemoryGuard) Seen(ctx context.Context, jti string, now time.Time) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.used[jti]
	return ok && !now.After(exp), nil
}

// Purge evicts entries whose token has expired; such tokens are rejected as expired anyway.
func (g *MemoryGuard) Purge(ctx context.Context, now time.Time) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var removed int64
	for jti, exp := range g.used {
		if now.After(exp) {
			delete(g.used, jti)
			removed++
		}
	}
	return removed, nil
}

func (g *MemoryGuard) Reset(ctx context.Context) error {
	g.mu.Lock()
	g.used = make(map[string]time.Time)
	g.mu.Unlock()
	return nil
}

func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.used)
}

// PurgeTask evicts expired redemptions. It is run by the periodic scheduler and by
// the admin trigger.
func PurgeTask(guard ReplayGuard, clk clock.Clock) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		removed, err := guard.Purge(ctx, clk.Now())
		if err != nil {
			return nil, err
		}
		if removed > 0 {
			slog.Info("sso replay entries purged", "removed", removed)
		}
		return removed, nil
	}
}
