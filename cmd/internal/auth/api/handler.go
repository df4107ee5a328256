// Package authapi exposes the login, password-change and session-check endpoints.
package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"lms/cmd/identity"
	"lms/cmd/internal/auth/account"
	"lms/cmd/internal/auth/session"
	"lms/cmd/internal/menu"
)

// Client-facing messages. They are part of the API contract.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgFeesOverdue        = "Access denied: Overdue fees detected."
	msgUserNotFound       = "User not found."
	msgOldPasswordWrong   = "Old password is incorrect."
	msgPasswordChanged    = "Password changed successfully."
	msgInvalidPassword    = "New password does not meet the password policy."
	msgSessionSuperseded  = "Another login detected"
)

// Accounts runs the login and password-change flows. *account.Service satisfies it.
type Accounts interface {
	Login(ctx context.Context, in account.LoginInput) (account.LoginResult, error)
	ChangePassword(ctx context.Context, in account.ChangePasswordInput) error
}

// SessionValidator checks that a bearer token is the current session. *session.Service satisfies it.
type SessionValidator interface {
	Validate(ctx context.Context, tok string, now time.Time) (session.Claims, error)
}

// Handler wires HTTP auth endpoints to the account and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts Accounts
	sessions SessionValidator
	audit    Auditor
	throttle *loginThrottle

	now func() time.Time
}

// HandlerOption configures optional dependencies.
type HandlerOption func(*Handler)

// WithAuditor overrides the default no-op auditor.
func WithAuditor(a Auditor) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.audit = a
		}
	}
}

// NewHandler constructs a Handler. With nil accounts or sessions the
// endpoints reply 503 db_unavailable.
func NewHandler(log *slog.Logger, cfg Config, accounts Accounts, sessions SessionValidator, opts ...HandlerOption) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		sessions: sessions,
		audit:    NopAuditor{},
		throttle: newLoginThrottle(cfg),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Start runs the throttle's expiry loop until Close.
func (h *Handler) Start() { h.throttle.start() }

// Close stops the loop started by Start.
func (h *Handler) Close() { h.throttle.stop() }

// Register wires auth routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/change-password", h.handleChangePassword)
	mux.HandleFunc("/api/auth/session", h.handleSession)
}

func (h *Handler) available(w http.ResponseWriter) bool {
	if h.accounts == nil || h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return false
	}
	return true
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.available(w) {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	username := identity.NormalizeUsername(req.Username)
	subject := userKey(username)

	if blocked, retry := h.throttle.check(ip, subject, now); blocked {
		h.audit.Record(ctx, AuditEvent{Event: eventLogin, Username: username, IP: ip, UserAgent: ua, Result: "rate_limited"})
		writeRateLimited(w, retry)
		return
	}

	res, err := h.accounts.Login(ctx, account.LoginInput{Username: req.Username, Password: req.Password})
	if err != nil {
		ev := AuditEvent{Event: eventLogin, Username: username, IP: ip, UserAgent: ua}
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
			return
		case errors.Is(err, account.ErrInvalidCredentials):
			h.throttle.fail(ip, subject, now)
			ev.Result = account.ResultInvalidCredentials
			writeError(w, http.StatusUnauthorized, "invalid_credentials", msgInvalidCredentials)
		case errors.Is(err, account.ErrFeesOverdue):
			ev.Result = account.ResultFeesOverdue
			writeError(w, http.StatusForbidden, "fees_overdue", msgFeesOverdue)
		default:
			h.log.Error("auth.login.fail", "err", err)
			ev.Result = account.ResultError
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		h.audit.Record(ctx, ev)
		return
	}

	h.throttle.succeed(subject)
	h.audit.Record(ctx, AuditEvent{
		Event: eventLogin, UserID: res.UserID, Username: username, IP: ip, UserAgent: ua, Result: account.ResultSuccess,
	})

	menus := res.Menus
	if menus == nil {
		menus = []menu.Entry{}
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, Menus: menus})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.available(w) {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)
	subject := accountKey(strings.TrimSpace(req.UserID))
	ev := AuditEvent{
		Event:     eventPasswordChange,
		UserID:    req.UserID,
		IP:        ip,
		UserAgent: strings.TrimSpace(r.UserAgent()),
	}

	// The old password is checked here without a session, so wrong guesses
	// count against the same limits as failed logins.
	if blocked, retry := h.throttle.check(ip, subject, now); blocked {
		ev.Result = "rate_limited"
		h.audit.Record(ctx, ev)
		writeRateLimited(w, retry)
		return
	}

	err := h.accounts.ChangePassword(ctx, account.ChangePasswordInput{
		UserID:      req.UserID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	switch {
	case err == nil:
		h.throttle.succeed(subject)
		ev.Result = "success"
		writeJSON(w, http.StatusOK, messageResponse{Message: msgPasswordChanged})
	case errors.Is(err, account.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", "userId, oldPassword and newPassword are required")
		return
	case errors.Is(err, account.ErrNotFound):
		ev.Result = "not_found"
		writeError(w, http.StatusNotFound, "not_found", msgUserNotFound)
	case errors.Is(err, account.ErrUnauthorized):
		h.throttle.fail(ip, subject, now)
		ev.Result = "unauthorized"
		writeError(w, http.StatusUnauthorized, "unauthorized", msgOldPasswordWrong)
	case errors.Is(err, account.ErrInvalidPassword):
		ev.Result = "invalid_password"
		writeError(w, http.StatusBadRequest, "invalid_password", msgInvalidPassword)
	default:
		h.log.Error("auth.password_change.fail", "err", err)
		ev.Result = "error"
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
	h.audit.Record(ctx, ev)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.available(w) {
		return
	}

	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	claims, err := h.sessions.Validate(r.Context(), tok, h.now())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionSuperseded):
		writeError(w, http.StatusUnauthorized, "session_superseded", msgSessionSuperseded)
		return
	case session.IsAuthFailure(err):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return
	default:
		h.log.Error("auth.session.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:      claims.UserID,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
		ExpiresAt:   claims.ExpiresAt,
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	scheme, tok, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	for p := range strings.SplitSeq(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
