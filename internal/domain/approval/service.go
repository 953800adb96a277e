package approval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"emsys/internal/platform/clock"
)

type Service struct {
	Store    StoreAPI
	Clock    clock.Clock
	Validity clock.Window
	// GraceOverwrite keeps a decided request open to a second decision until
	// Validity has passed since the first one; the second decision replaces the
	// action but not the processed time. When false the first decision is final
	// and of any number of concurrent decisions exactly one succeeds.
	GraceOverwrite bool
}

func NewService(store StoreAPI, clk clock.Clock, validity clock.Window, graceOverwrite bool) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{Store: store, Clock: clk, Validity: validity, GraceOverwrite: graceOverwrite}
}

// Create stores a pending request and returns it with its new token. This is the
// only path that creates records.
func (s *Service) Create(ctx context.Context, payload LeavePayload) (Record, error) {
	payload.Nickname = strings.TrimSpace(payload.Nickname)
	if err := payload.Validate(); err != nil {
		return Record{}, err
	}
	rec := Record{
		Token:     uuid.NewString(),
		Payload:   payload,
		Action:    ActionPending,
		CreatedAt: s.Clock.Now().UTC(),
	}
	if err := s.Store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save leave token: %w", err)
	}
	return rec, nil
}

// Inspect never mutates state.
func (s *Service) Inspect(ctx context.Context, token string) (View, error) {
	if !validToken(token) {
		return View{}, ErrNotFound
	}
	rec, err := s.Store.Get(ctx, token)
	if err != nil {
		return View{}, err
	}
	now := s.Clock.Now()
	return View{
		Record:       rec,
		WithinWindow: s.Validity.Contains(rec.CreatedAt, now),
		Actionable:   rec.Action == ActionPending,
	}, nil
}

// Transition records a decision with a single conditional write. It succeeds when
// the request is undecided and was created within the validity window, or, with
// GraceOverwrite, when the first decision is itself within the window. Every other
// case, including an unknown token, is ErrNotFoundOrExpired.
func (s *Service) Transition(ctx context.Context, token string, target Action, reviewReason string) (Result, error) {
	if !target.Terminal() {
		return Result{}, ErrInvalidAction
	}
	var reason *string
	if target == ActionRejected {
		trimmed := strings.TrimSpace(reviewReason)
		if trimmed == "" {
			return Result{}, &ValidationError{Fields: []string{"reason"}}
		}
		reason = &trimmed
	}
	if !validToken(token) {
		return Result{}, ErrNotFoundOrExpired
	}

	now := s.Clock.Now().UTC()
	rec, prev, err := s.Store.Transition(ctx, TransitionParams{
		Token:        token,
		Target:       target,
		ReviewReason: reason,
		Now:          now,
		WindowStart:  s.Validity.Start(now),
		AllowGrace:   s.GraceOverwrite,
	})
	if err != nil {
		return Result{}, err
	}
	res := Result{Record: rec, Previous: prev}
	if res.Overwrote() {
		slog.Warn("leave decision overwritten within grace period", "token", token, "from", prev, "to", target)
	}
	return res, nil
}

func (s *Service) Approve(ctx context.Context, token string) (Result, error) {
	return s.Transition(ctx, token, ActionApproved, "")
}

func (s *Service) Reject(ctx context.Context, token, reason string) (Result, error) {
	return s.Transition(ctx, token, ActionRejected, reason)
}

// validToken accepts only the canonical form that Create issues.
func validToken(token string) bool {
	if len(token) != 36 {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}
