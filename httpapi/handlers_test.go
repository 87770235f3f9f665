package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commutelife/accountd"
	"github.com/commutelife/accountd/database"
)

type capturedCode struct {
	Destination string
	Code        string
}

type stubSender struct {
	mu   sync.Mutex
	sent []capturedCode
	fail bool
}

func (s *stubSender) SendCode(_ context.Context, dest, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("provider down")
	}
	s.sent = append(s.sent, capturedCode{Destination: dest, Code: code})
	return nil
}

func (s *stubSender) last(t *testing.T) capturedCode {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no code sent")
	return s.sent[len(s.sent)-1]
}

type apiEnv struct {
	srv  *httptest.Server
	sms  *stubSender
	mail *stubSender
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := accountd.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Cost = 4 // keep tests fast

	sms := &stubSender{}
	mail := &stubSender{}

	engine, err := accountd.New().
		WithConfig(cfg).
		WithDB(db).
		WithRedis(rdb).
		WithSMSSender(sms).
		WithMailSender(mail).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	server := NewServer(engine, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &apiEnv{srv: srv, sms: sms, mail: mail}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *apiEnv) register(t *testing.T) {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "rider@example.com",
		"phone":    "13800138000",
		"password": "Secret123!",
		"nickname": "rider",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "register: %+v", env)
}

func (e *apiEnv) login(t *testing.T) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login: %+v", env)

	data := env.Data.(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "rider@example.com",
		"phone":    "13800138000",
		"password": "Secret123!",
		"nickname": "rider",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Code)

	data := body.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])

	acct := data["account"].(map[string]any)
	assert.NotEmpty(t, acct["id"])
	assert.Equal(t, "rider@example.com", acct["email"])
	assert.NotContains(t, acct, "password_hash")

	// The token signs the new account in right away.
	resp, body = env.do(t, http.MethodPost, "/api/auth/logout", data["token"].(string), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Code)

	// Duplicate email.
	resp, body = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "rider@example.com",
		"phone":    "13900139000",
		"password": "Secret123!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "EMAIL_EXISTS", body.Code)
}

func TestRegisterEndpointValidation(t *testing.T) {
	env := newAPIEnv(t)

	cases := []struct {
		name     string
		body     map[string]string
		wantCode string
	}{
		{"bad email", map[string]string{"email": "nope", "phone": "13800138000", "password": "Secret123!"}, "INVALID_EMAIL"},
		{"bad phone", map[string]string{"email": "rider@example.com", "phone": "12345", "password": "Secret123!"}, "INVALID_PHONE"},
		{"weak password", map[string]string{"email": "rider@example.com", "phone": "13800138000", "password": "short"}, "PASSWORD_POLICY"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.wantCode, body.Code)
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":       "rider@example.com",
		"password":    "Secret123!",
		"device_type": "IOS",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])
	assert.NotEmpty(t, data["session_id"])
	assert.NotEmpty(t, data["expires_at"])

	acct := data["account"].(map[string]any)
	assert.Equal(t, "rider@example.com", acct["email"])

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "WrongPass1!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body.Code)
}

func TestLoginEndpointLockout(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)

	for i := 0; i < 4; i++ {
		resp, _ := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "rider@example.com",
			"password": "WrongPass1!",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// The failure that crosses the threshold already reports the lock.
	resp, body := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "WrongPass1!",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_LOCKED", body.Code)

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "Secret123!",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCOUNT_LOCKED", body.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)
	token := env.login(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Code)

	// The revoked session's token no longer refreshes.
	resp, body = env.do(t, http.MethodPost, "/api/auth/refresh-token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", body.Code)

	// Missing bearer token.
	resp, body = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", body.Code)
}

func TestRefreshTokenEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)
	token := env.login(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/refresh-token", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body.Data.(map[string]any)
	fresh, _ := data["token"].(string)
	require.NotEmpty(t, fresh)
	assert.NotEqual(t, token, fresh)

	// The replaced token is dead; the fresh one works.
	resp, _ = env.do(t, http.MethodPost, "/api/auth/refresh-token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/refresh-token", fresh, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePasswordEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)
	token := env.login(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"old_password": "WrongPass1!",
		"new_password": "Fresh456?",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PASSWORD", body.Code)

	resp, body = env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"old_password": "Secret123!",
		"new_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "PASSWORD_POLICY", body.Code)

	resp, body = env.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"old_password": "Secret123!",
		"new_password": "Fresh456?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Code)

	// Old password is out, new one is in.
	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "Secret123!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "rider@example.com",
		"password": "Fresh456?",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSendAndVerifyCodeEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/send-verify-code", "", map[string]string{
		"phone": "13800138000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", body)

	sent := env.sms.last(t)
	assert.Equal(t, "13800138000", sent.Destination)
	assert.Len(t, sent.Code, 6)

	// Wrong code burns a retry and reports the remaining budget.
	wrong := "000000"
	if wrong == sent.Code {
		wrong = "000001"
	}
	resp, body = env.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
		"destination": "13800138000",
		"code":        wrong,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CODE_INVALID", body.Code)
	data := body.Data.(map[string]any)
	assert.Equal(t, float64(4), data["retries_left"])

	resp, body = env.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
		"destination": "13800138000",
		"code":        sent.Code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = body.Data.(map[string]any)
	assert.Equal(t, true, data["verified"])
}

func TestSendEmailCodeEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/auth/send-email-code", "", map[string]string{
		"email": "rider@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", body)

	sent := env.mail.last(t)
	assert.Equal(t, "rider@example.com", sent.Destination)
	assert.Empty(t, env.sms.sent)
}

func TestSendCodeCooldownEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/auth/send-verify-code", "", map[string]string{
		"phone": "13800138000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/auth/send-verify-code", "", map[string]string{
		"phone": "13800138000",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "SEND_TOO_FREQUENT", body.Code)

	data := body.Data.(map[string]any)
	wait, _ := data["retry_after_seconds"].(float64)
	assert.Greater(t, wait, float64(0))
	assert.LessOrEqual(t, wait, float64(60))
}

func TestSessionsEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t)
	first := env.login(t)
	time.Sleep(5 * time.Millisecond)
	second := env.login(t)

	resp, body := env.do(t, http.MethodGet, "/api/auth/sessions", second, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	views := body.Data.([]any)
	require.Len(t, views, 2)
	for _, v := range views {
		sess := v.(map[string]any)
		assert.NotEmpty(t, sess["device_id"])
		assert.Equal(t, "UNKNOWN", sess["device_type"])
		assert.NotContains(t, sess, "token")
	}

	// Logging out the first session shrinks the list.
	resp, _ = env.do(t, http.MethodPost, "/api/auth/logout", first, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/auth/sessions", second, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Data.([]any), 1)
}

func TestMalformedBody(t *testing.T) {
	env := newAPIEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/register", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body.Code)
}
