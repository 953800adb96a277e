package adminhandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"emsys/internal/auth"
	"emsys/internal/domain/sso"
	"emsys/internal/platform/clock"
	"emsys/internal/platform/jobs"
	"emsys/internal/transport/http/api"
	"emsys/internal/transport/http/middleware"
)

type Handler struct {
	Guard sso.ReplayGuard
	Jobs  *jobs.Service
	Clock clock.Clock
}

func NewHandler(guard sso.ReplayGuard, jobsSvc *jobs.Service, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.System{}
	}
	return &Handler{Guard: guard, Jobs: jobsSvc, Clock: clk}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Post("/sso/purge", h.handlePurge)
		r.Post("/sso/reset", h.handleReset)
	})
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	removed, err := h.Jobs.RunNow(r.Context(), jobs.JobReplayPurge, "manual", sso.PurgeTask(h.Guard, h.Clock))
	if err != nil {
		slog.Error("sso replay purge failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "purge_failed", "replay purge failed", reqID)
		return
	}
	api.Success(w, map[string]any{"removed": removed}, reqID)
}

// handleReset forgets every redemption. Tokens still inside their lifetime become
// redeemable again, so this is only for recovering a corrupted guard.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	if err := h.Guard.Reset(r.Context()); err != nil {
		slog.Error("sso replay reset failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "reset_failed", "replay reset failed", reqID)
		return
	}
	slog.Warn("sso replay guard reset", "by", user.Username, "requestId", reqID)
	api.Success(w, map[string]any{"reset": true}, reqID)
}
