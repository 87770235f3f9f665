package httpapi

import (
	"net/http"
	"time"

	"github.com/commutelife/accountd"
	"github.com/commutelife/accountd/account"
	"github.com/commutelife/accountd/session"
)

type registerRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type accountView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Nickname    string     `json:"nickname,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newAccountView(a *account.Account) accountView {
	return accountView{
		ID:          a.ID,
		Email:       a.Email,
		Phone:       a.Phone,
		Nickname:    a.Nickname,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.Register(r.Context(), accountd.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w, registerResponse{
		Token:   result.Token,
		Account: newAccountView(result.Account),
	})
}

type registerResponse struct {
	Token   string      `json:"token"`
	Account accountView `json:"account"`
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DeviceID    string `json:"device_id,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`
	DeviceName  string `json:"device_name,omitempty"`
	DeviceModel string `json:"device_model,omitempty"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	Account   accountView `json:"account"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engine.Login(r.Context(), accountd.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device: session.Device{
			ID:    req.DeviceID,
			Type:  req.DeviceType,
			Name:  req.DeviceName,
			Model: req.DeviceModel,
		},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w, loginResponse{
		Token:     result.Token,
		SessionID: result.Session.ID,
		ExpiresAt: result.Session.ExpiresAt,
		Account:   newAccountView(result.Account),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	tok := bearerToken(r)
	if tok == "" {
		s.writeError(w, r, accountd.ErrInvalidToken)
		return
	}

	if err := s.engine.Logout(r.Context(), tok); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w, nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	tok := bearerToken(r)
	if tok == "" {
		s.writeError(w, r, accountd.ErrInvalidToken)
		return
	}

	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ChangePassword(r.Context(), tok, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w, nil)
}

type refreshResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	tok := bearerToken(r)
	if tok == "" {
		s.writeError(w, r, accountd.ErrInvalidToken)
		return
	}

	result, err := s.engine.RefreshToken(r.Context(), tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w, refreshResponse{Token: result.Token, SessionID: result.SessionID})
}

type sendSMSCodeRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) handleSendVerifyCode(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	var req sendSMSCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sendCode(w, r, accountd.ChannelSMS, req.Phone)
}

type sendEmailCodeRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendEmailCode(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	var req sendEmailCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.sendCode(w, r, accountd.ChannelEmail, req.Email)
}

type sendCodeResponse struct {
	Destination       string `json:"destination"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

func (s *Server) sendCode(w http.ResponseWriter, r *http.Request, channel accountd.Channel, destination string) {
	err := s.engine.SendVerifyCode(r.Context(), channel, destination)
	if err == nil {
		s.writeOK(w, sendCodeResponse{Destination: destination})
		return
	}

	if wait, waitErr := s.engine.CodeSendWait(r.Context(), destination); waitErr == nil && wait > 0 {
		status, code := errorStatus(err)
		s.writeJSON(w, status, envelope{
			Code:    code,
			Message: err.Error(),
			Data:    sendCodeResponse{Destination: destination, RetryAfterSeconds: int64(wait.Seconds())},
		})
		return
	}

	s.writeError(w, r, err)
}

type verifyCodeRequest struct {
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

type verifyCodeResponse struct {
	Verified    bool `json:"verified"`
	RetriesLeft int  `json:"retries_left,omitempty"`
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	var req verifyCodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.engine.VerifyCode(r.Context(), req.Destination, req.Code)
	if err == nil {
		s.writeOK(w, verifyCodeResponse{Verified: true})
		return
	}

	status, code := errorStatus(err)
	body := envelope{Code: code, Message: err.Error(), Data: verifyCodeResponse{}}
	if left, leftErr := s.engine.CodeRetriesLeft(r.Context(), req.Destination); leftErr == nil {
		body.Data = verifyCodeResponse{RetriesLeft: left}
	}
	s.writeJSON(w, status, body)
}

type sessionView struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"device_id"`
	DeviceType     string    `json:"device_type"`
	DeviceName     string    `json:"device_name,omitempty"`
	DeviceModel    string    `json:"device_model,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)

	tok := bearerToken(r)
	if tok == "" {
		s.writeError(w, r, accountd.ErrInvalidToken)
		return
	}

	sessions, err := s.engine.ActiveSessions(r.Context(), tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			ID:             sess.ID,
			DeviceID:       sess.DeviceID,
			DeviceType:     sess.DeviceType,
			DeviceName:     sess.DeviceName,
			DeviceModel:    sess.DeviceModel,
			IPAddress:      sess.IPAddress,
			CreatedAt:      sess.CreatedAt,
			LastActivityAt: sess.LastActivityAt,
			ExpiresAt:      sess.ExpiresAt,
		})
	}

	s.writeOK(w, views)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{Code: "OK", Message: "ok"})
}
