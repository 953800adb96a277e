package notifications

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"emsys/internal/domain/approval"
)

// Poster delivers a text message to the team chat channel.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Enqueuer runs work in the background. It reports false when the work was dropped.
type Enqueuer interface {
	Enqueue(jobType, key string, run func(context.Context) (any, error)) bool
}

type Service struct {
	Poster   Poster
	Jobs     Enqueuer
	BaseURL  string
	Validity time.Duration
	Location *time.Location
}

func New(poster Poster, jobs Enqueuer, baseURL string, validity time.Duration, loc *time.Location) *Service {
	return &Service{
		Poster:   poster,
		Jobs:     jobs,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Validity: validity,
		Location: loc,
	}
}

func (s *Service) ApproveURL(token string) string {
	return s.BaseURL + "/leave/approve/" + token
}

func (s *Service) RejectURL(token string) string {
	return s.BaseURL + "/leave/reject/" + token
}

// LeaveSubmitted posts the approval request and reports whether it was delivered.
// Delivery failure does not undo the submission.
func (s *Service) LeaveSubmitted(ctx context.Context, rec approval.Record) bool {
	if s.Poster == nil {
		return false
	}
	text := SubmittedMessage(rec.Payload, s.ApproveURL(rec.Token), s.RejectURL(rec.Token), s.Validity, s.Location)
	if err := s.Poster.Post(ctx, text); err != nil {
		slog.Warn("chat notification send failed", "type", TypeLeaveSubmitted, "err", err)
		return false
	}
	return true
}

// LeaveDecided announces a recorded decision in the background. The decision is
// final whatever happens to the message.
func (s *Service) LeaveDecided(ctx context.Context, rec approval.Record) {
	if s.Poster == nil {
		return
	}
	ntype, text := DecisionMessage(rec)
	send := func(ctx context.Context) (any, error) {
		return nil, s.Poster.Post(ctx, text)
	}
	if s.Jobs != nil && s.Jobs.Enqueue(ntype, rec.Token, send) {
		return
	}
	if _, err := send(ctx); err != nil {
		slog.Warn("chat notification send failed", "type", ntype, "err", err)
	}
}
