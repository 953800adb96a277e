package ssohandler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"emsys/internal/auth"
	"emsys/internal/domain/sso"
	"emsys/internal/domain/users"
	"emsys/internal/platform/chat"
	"emsys/internal/platform/metrics"
	"emsys/internal/transport/http/api"
	"emsys/internal/transport/http/middleware"
)

// Session configures the cookie issued after a successful SSO redemption.
type Session struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

type Handler struct {
	Issuer  *sso.Issuer
	Users   *users.Service
	Metrics *metrics.Collector
	Session Session
	// PublicBaseURL prefixes the login links sent back to chat.
	PublicBaseURL string
	// WebhookToken, when set, must match the token the chat server sends with
	// every outgoing webhook call.
	WebhookToken string
}

func NewHandler(issuer *sso.Issuer, usersSvc *users.Service, collector *metrics.Collector, session Session, publicBaseURL, webhookToken string) *Handler {
	return &Handler{
		Issuer:        issuer,
		Users:         usersSvc,
		Metrics:       collector,
		Session:       session,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		WebhookToken:  webhookToken,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/webhook", h.handleWebhook)
	r.With(middleware.NoStore).Get("/sso", h.handleRedeem)
	r.With(middleware.NoStore).Head("/sso", h.handlePeek)
}

type webhookRequest struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

func parseWebhook(r *http.Request) (webhookRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return webhookRequest{}, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return webhookRequest{}, err
	}
	return webhookRequest{
		Token:       r.PostForm.Get("token"),
		UserID:      r.PostForm.Get("user_id"),
		Username:    r.PostForm.Get("username"),
		DisplayName: r.PostForm.Get("display_name"),
		Text:        r.PostForm.Get("text"),
	}, nil
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	req, err := parseWebhook(r)
	if err != nil {
		writeReply(w, http.StatusBadRequest, chat.Ephemeral("❌ Could not read the request."))
		return
	}
	if !h.webhookTokenOK(req.Token) {
		slog.Warn("chat webhook rejected", "reason", "token mismatch", "requestId", middleware.GetRequestID(r.Context()))
		writeReply(w, http.StatusForbidden, chat.Ephemeral("❌ Invalid token."))
		return
	}

	command := strings.Fields(strings.TrimSpace(req.Text))
	if len(command) == 0 || command[0] != "/login" {
		writeReply(w, http.StatusOK, chat.Ephemeral("❌ Unknown command. Try /login."))
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	token, err := h.Issuer.Issue(r.Context(), sso.Identity{
		UserID:      req.UserID,
		Username:    req.Username,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, sso.ErrInvalidIdentity) {
			writeReply(w, http.StatusOK, chat.Ephemeral("❌ Your chat account has no username."))
			return
		}
		slog.Error("sso issue failed", "err", err)
		writeReply(w, http.StatusOK, chat.Ephemeral("❌ Could not create a login link, please contact an administrator."))
		return
	}
	h.Metrics.Inc("sso_issued")

	link := h.loginURL(token)
	text := fmt.Sprintf("🔐 **Staff system login - one-time link**\n\n👤 User: %s\n\n"+
		"Open the link below to sign in:\n%s\n\n"+
		"⚠️ The link works once and expires in %d minutes. Request a new one for every login.",
		displayName, link, int(h.Issuer.TTL().Minutes()))
	writeReply(w, http.StatusOK, chat.EphemeralLink(text, "🚀 Sign in once", link))
}

func (h *Handler) webhookTokenOK(got string) bool {
	if h.WebhookToken == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookToken)) == 1
}

func (h *Handler) loginURL(token string) string {
	return h.PublicBaseURL + "/api/v1/sso?token=" + url.QueryEscape(token)
}

func writeReply(w http.ResponseWriter, status int, reply chat.Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		slog.Warn("write chat reply failed", "err", err)
	}
}

type loginResponse struct {
	User        users.User `json:"user"`
	RedirectURL string     `json:"redirectUrl"`
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	token := r.URL.Query().Get("token")
	if token == "" {
		api.Fail(w, http.StatusBadRequest, "token_malformed", "login link is missing its token", reqID)
		return
	}

	id, err := h.Issuer.VerifyAndConsume(r.Context(), token)
	if err != nil {
		h.failRedeem(w, err, reqID)
		return
	}
	h.Metrics.Inc("sso_redeemed")

	user, err := h.Users.Login(r.Context(), id.Username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			api.Fail(w, http.StatusUnauthorized, "user_inactive", "no active account for this chat user", reqID)
			return
		}
		slog.Error("sso user lookup failed", "username", id.Username, "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	session, err := auth.GenerateToken(h.Session.Secret, auth.Claims{
		UserID:    strconv.FormatInt(user.ID, 10),
		Username:  user.Username,
		Nickname:  user.Nickname,
		RoleLevel: user.RoleLevel,
	}, h.Session.TTL)
	if err != nil {
		slog.Error("session token failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.Session.CookieName,
		Value:    session,
		Path:     "/",
		MaxAge:   int(h.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("sso login", "username", user.Username, "requestId", reqID)
	api.Success(w, loginResponse{User: user, RedirectURL: "/dashboard"}, reqID)
}

func (h *Handler) failRedeem(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, sso.ErrMalformed):
		h.Metrics.Inc("sso_malformed")
		api.Fail(w, http.StatusBadRequest, "token_malformed", "invalid login link", reqID)
	case errors.Is(err, sso.ErrExpired):
		h.Metrics.Inc("sso_expired")
		api.Fail(w, http.StatusGone, "token_expired", "login link has expired", reqID)
	case errors.Is(err, sso.ErrAlreadyUsed):
		h.Metrics.Inc("sso_replayed")
		api.Fail(w, http.StatusConflict, "token_used", "login link has already been used", reqID)
	default:
		slog.Error("sso redeem failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
	}
}

// handlePeek answers link-preview HEAD requests without redeeming the token.
func (h *Handler) handlePeek(w http.ResponseWriter, r *http.Request) {
	info, err := h.Issuer.PeekUnverified(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		slog.Error("sso peek failed", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Token-Status", string(info.Status))
	if !info.ExpiresAt.IsZero() {
		w.Header().Set("X-Token-Expires", info.ExpiresAt.UTC().Format(time.RFC3339))
	}
	w.WriteHeader(peekStatus(info.Status))
}

func peekStatus(status sso.TokenStatus) int {
	switch status {
	case sso.StatusValid:
		return http.StatusOK
	case sso.StatusExpired:
		return http.StatusGone
	case sso.StatusUsed:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
