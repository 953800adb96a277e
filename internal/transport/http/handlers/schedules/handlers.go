package scheduleshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"emsys/internal/domain/schedule"
	"emsys/internal/transport/http/api"
	"emsys/internal/transport/http/middleware"
	"emsys/internal/transport/http/shared"
)

const maxShiftName = 50

type Handler struct {
	Service *schedule.Service
}

func NewHandler(service *schedule.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/schedules", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/lock-status/{date}", h.handleLockStatus)
		r.Get("/week", h.handleWeek)
		r.Post("/", h.handleCreate)
		r.Put("/{scheduleID}", h.handleUpdate)
	})
}

func (h *Handler) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	day, ok := v.Date("date", chi.URLParam(r, "date"))
	if !ok {
		v.Reject(w, reqID)
		return
	}
	api.Success(w, h.Service.LockStatus(day), reqID)
}

func (h *Handler) handleWeek(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	userName := strings.TrimSpace(r.URL.Query().Get("user"))
	if userName == "" {
		userName = user.Nickname
	}
	v := shared.NewValidator()
	v.Required("user", userName, "is required")
	day, _ := v.Date("date", r.URL.Query().Get("date"))
	if v.Reject(w, reqID) {
		return
	}

	entries, err := h.Service.ListWeek(r.Context(), userName, day)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if entries == nil {
		entries = []schedule.Entry{}
	}
	api.Success(w, entries, reqID)
}

type createRequest struct {
	UserName     string `json:"userName"`
	ScheduleDate string `json:"scheduleDate"`
	ShiftName    string `json:"shiftName"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("userName", payload.UserName, "is required")
	v.Required("shiftName", payload.ShiftName, "is required")
	v.MaxLen("shiftName", payload.ShiftName, maxShiftName)
	day, _ := v.Date("scheduleDate", payload.ScheduleDate)
	if v.Reject(w, reqID) {
		return
	}

	entry, err := h.Service.Create(r.Context(), schedule.CreateInput{
		UserName:  payload.UserName,
		Date:      day,
		ShiftName: payload.ShiftName,
		CreatedBy: user.Nickname,
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, entry, reqID)
}

type updateRequest struct {
	ShiftName string `json:"shiftName"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "scheduleID"), 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid schedule id", reqID)
		return
	}
	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("shiftName", payload.ShiftName, "is required")
	v.MaxLen("shiftName", payload.ShiftName, maxShiftName)
	if v.Reject(w, reqID) {
		return
	}

	entry, err := h.Service.Update(r.Context(), id, schedule.UpdateInput{ShiftName: payload.ShiftName})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, entry, reqID)
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	var locked *schedule.LockedError
	switch {
	case errors.As(err, &locked):
		api.FailWithDetails(w, http.StatusConflict, "schedule_locked", locked.Error(), map[string]any{
			"date":   locked.Date.Format(schedule.DateLayout),
			"cutoff": locked.Cutoff,
		}, reqID)
	case errors.Is(err, schedule.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, schedule.ErrDuplicate):
		api.Fail(w, http.StatusConflict, "duplicate", err.Error(), reqID)
	case errors.Is(err, schedule.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "schedule entry not found", reqID)
	default:
		slog.Error("schedule request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "schedule request failed", reqID)
	}
}
