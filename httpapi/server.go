// Package httpapi exposes the auth engine over a JSON HTTP surface under
// /api/auth/. Responses use a {code, message, data} envelope; engine errors
// map to symbolic codes so clients never see internal error text.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/commutelife/accountd"
)

// Server routes auth requests to the engine.
type Server struct {
	engine *accountd.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer returns a [Server] with all routes registered.
func NewServer(engine *accountd.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: engine,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.HandleFunc("POST /api/auth/change-password", s.handleChangePassword)
	s.mux.HandleFunc("POST /api/auth/refresh-token", s.handleRefreshToken)
	s.mux.HandleFunc("POST /api/auth/send-verify-code", s.handleSendVerifyCode)
	s.mux.HandleFunc("POST /api/auth/send-email-code", s.handleSendEmailCode)
	s.mux.HandleFunc("POST /api/auth/verify-code", s.handleVerifyCode)
	s.mux.HandleFunc("GET /api/auth/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	return s
}

// Handler returns the root handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) writeOK(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, envelope{Code: "OK", Message: "success", Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		s.writeJSON(w, status, envelope{Code: code, Message: "internal error"})
		return
	}
	s.writeJSON(w, status, envelope{Code: code, Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", slog.String("error", err.Error()))
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, accountd.ErrEmailExists):
		return http.StatusBadRequest, "EMAIL_EXISTS"
	case errors.Is(err, accountd.ErrPhoneExists):
		return http.StatusBadRequest, "PHONE_EXISTS"
	case errors.Is(err, accountd.ErrInvalidEmail):
		return http.StatusBadRequest, "INVALID_EMAIL"
	case errors.Is(err, accountd.ErrInvalidPhone):
		return http.StatusBadRequest, "INVALID_PHONE"
	case errors.Is(err, accountd.ErrPasswordPolicy):
		return http.StatusBadRequest, "PASSWORD_POLICY"
	case errors.Is(err, accountd.ErrInvalidPassword):
		return http.StatusBadRequest, "INVALID_PASSWORD"
	case errors.Is(err, accountd.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, accountd.ErrInvalidToken):
		return http.StatusUnauthorized, "INVALID_TOKEN"
	case errors.Is(err, accountd.ErrAccountLocked):
		return http.StatusForbidden, "ACCOUNT_LOCKED"
	case errors.Is(err, accountd.ErrAccountInactive):
		return http.StatusForbidden, "ACCOUNT_INACTIVE"
	case errors.Is(err, accountd.ErrAccountNotFound):
		return http.StatusNotFound, "ACCOUNT_NOT_FOUND"
	case errors.Is(err, accountd.ErrSendTooFrequent):
		return http.StatusTooManyRequests, "SEND_TOO_FREQUENT"
	case errors.Is(err, accountd.ErrCodeAttemptsExceeded):
		return http.StatusBadRequest, "CODE_ATTEMPTS_EXCEEDED"
	case errors.Is(err, accountd.ErrCodeInvalid):
		return http.StatusBadRequest, "CODE_INVALID"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST"
	default:
		return http.StatusInternalServerError, "SYSTEM_ERROR"
	}
}

var errBadRequest = errors.New("malformed request body")

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errBadRequest
	}
	return nil
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// requestContext attaches the caller's IP and user agent for the engine.
func requestContext(r *http.Request) *http.Request {
	ctx := accountd.WithClientIP(r.Context(), ClientIP(r))
	ctx = accountd.WithUserAgent(ctx, r.UserAgent())
	return r.WithContext(ctx)
}
