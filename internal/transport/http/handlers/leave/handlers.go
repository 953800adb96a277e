package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"emsys/internal/domain/approval"
	"emsys/internal/domain/notifications"
	"emsys/internal/domain/schedule"
	"emsys/internal/transport/http/api"
	"emsys/internal/transport/http/middleware"
	"emsys/internal/transport/http/shared"
)

type Handler struct {
	Service   *approval.Service
	Schedules *schedule.Service
	Notify    *notifications.Service
	Location  *time.Location
}

func NewHandler(service *approval.Service, schedules *schedule.Service, notify *notifications.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Service: service, Schedules: schedules, Notify: notify, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequireUser).Post("/", h.handleSubmit)
		r.With(middleware.RequireUser).Get("/receipt/{token}", h.handleReceipt)

		// Decision links are opened from chat without a session; the token is the credential.
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get("/validate-token/{token}", h.handleValidate)
			r.Post("/approve/{token}", h.handleApprove)
			r.Post("/reject/{token}", h.handleReject)
		})
	})
}

type submitResponse struct {
	SynologyChatSent bool   `json:"synologyChatSent"`
	Message          string `json:"message"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload approval.LeavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	// Leave is always filed for the logged-in user.
	payload.Nickname = user.Nickname

	rec, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err, reqID)
		return
	}

	sent := h.Notify.LeaveSubmitted(r.Context(), rec)
	slog.Info("leave request submitted", "nickname", rec.Payload.Nickname, "chatSent", sent, "requestId", reqID)
	msg := "leave request submitted and approvers notified"
	if !sent {
		msg = "leave request submitted but the chat notification failed"
	}
	api.Created(w, submitResponse{SynologyChatSent: sent, Message: msg}, reqID)
}

type validateResponse struct {
	Valid   bool             `json:"valid"`
	Message string           `json:"message"`
	Record  *approval.Record `json:"data,omitempty"`
}

// handleValidate is read-only: an invalid or decided link is a normal answer, not an error.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	view, err := h.Service.Inspect(r.Context(), chi.URLParam(r, "token"))
	if errors.Is(err, approval.ErrNotFound) {
		api.Success(w, validateResponse{Message: "link is invalid or has expired"}, reqID)
		return
	}
	if err != nil {
		writeError(w, err, reqID)
		return
	}

	switch {
	case !view.WithinWindow:
		api.Success(w, validateResponse{Message: "link is invalid or has expired"}, reqID)
	case !view.Actionable:
		api.Success(w, validateResponse{Message: "request already " + string(view.Record.Action), Record: &view.Record}, reqID)
	default:
		api.Success(w, validateResponse{Valid: true, Message: "link is valid", Record: &view.Record}, reqID)
	}
}

type decisionResponse struct {
	Action    approval.Action `json:"action"`
	Overwrote bool            `json:"overwrote"`
	Message   string          `json:"message"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	res, err := h.Service.Approve(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err, reqID)
		return
	}

	if res.Changed() {
		h.applyToSchedule(r, res.Record)
		h.Notify.LeaveDecided(r.Context(), res.Record)
	}
	api.Success(w, decisionResponse{Action: res.Record.Action, Overwrote: res.Overwrote(), Message: "leave request approved"}, reqID)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var body rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	res, err := h.Service.Reject(r.Context(), chi.URLParam(r, "token"), body.Reason)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if res.Changed() {
		h.Notify.LeaveDecided(r.Context(), res.Record)
	}
	api.Success(w, decisionResponse{Action: res.Record.Action, Overwrote: res.Overwrote(), Message: "leave request rejected"}, reqID)
}

// applyToSchedule marks the approved days on the roster. Failures are logged only;
// the decision itself is already committed.
func (h *Handler) applyToSchedule(r *http.Request, rec approval.Record) {
	if h.Schedules == nil {
		return
	}
	days, err := rec.Payload.Dates.Days()
	if err != nil {
		slog.Warn("leave dates unreadable, schedule not updated", "token", rec.Token, "err", err)
		return
	}
	applied, err := h.Schedules.ApplyLeave(r.Context(), rec.Payload.Nickname, days, schedule.Remark{
		LeaveType:  rec.Payload.LeaveType,
		TimePeriod: rec.Payload.Time,
	})
	if err != nil {
		slog.Warn("leave only partly applied to schedule", "token", rec.Token, "applied", applied, "days", len(days), "err", err)
	}
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	pdf, err := h.Service.Receipt(r.Context(), chi.URLParam(r, "token"), h.Location)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="leave-decision.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("write receipt failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	var verr *approval.ValidationError
	switch {
	case errors.As(err, &verr):
		v := shared.NewValidator()
		v.Fields(verr.Fields, "is missing or invalid")
		shared.FailValidation(w, reqID, v.Issues())
	case errors.Is(err, approval.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, approval.ErrNotFoundOrExpired):
		api.Fail(w, http.StatusBadRequest, "not_found_or_expired", "request not found, already handled or link expired", reqID)
	case errors.Is(err, approval.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, approval.ErrUndecided):
		api.Fail(w, http.StatusConflict, "undecided", "leave request has not been decided yet", reqID)
	case errors.Is(err, approval.ErrInvalidAction):
		api.Fail(w, http.StatusBadRequest, "invalid_action", err.Error(), reqID)
	default:
		slog.Error("leave request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "leave request failed", reqID)
	}
}
