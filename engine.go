package accountd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	internalaudit "github.com/commutelife/accountd/internal/audit"

	"github.com/commutelife/accountd/account"
	"github.com/commutelife/accountd/gateway"
	"github.com/commutelife/accountd/otp"
	"github.com/commutelife/accountd/password"
	"github.com/commutelife/accountd/session"
	"github.com/commutelife/accountd/token"
)

// Engine orchestrates account, session, and verification flows. Build one
// through [New] and [Builder.Build]. All methods are safe for concurrent use.
type Engine struct {
	config   Config
	accounts *account.Store
	sessions *session.Store
	codes    *otp.Store
	hasher   *password.Hasher
	tokens   *token.Manager
	sms      gateway.SMSSender
	mail     gateway.MailSender
	audit    *internalaudit.Dispatcher
}

// Close drains the audit dispatcher. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Login verifies credentials and opens a session for the device. Unknown
// emails and wrong passwords both return [ErrInvalidCredentials]. Each failed
// password attempt advances the lockout counter; the failure that crosses the
// threshold locks the account for the configured duration and itself returns
// [ErrAccountLocked], as does every login attempt made while the lock holds.
func (e *Engine) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now().UTC()

	acct, err := e.accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			e.emit(ctx, AuditEvent{EventType: auditEventLogin, Error: "unknown identifier"})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if acct.Locked(now) {
		e.emit(ctx, AuditEvent{EventType: auditEventLogin, AccountID: acct.ID, Error: errMessage(ErrAccountLocked)})
		return nil, ErrAccountLocked
	}
	if !acct.IsActive {
		e.emit(ctx, AuditEvent{EventType: auditEventLogin, AccountID: acct.ID, Error: errMessage(ErrAccountInactive)})
		return nil, ErrAccountInactive
	}

	if !e.hasher.Verify(input.Password, acct.PasswordHash) {
		attempts := acct.FailedLoginAttempts + 1

		var lockedUntil *time.Time
		if attempts >= e.config.Lockout.MaxFailures {
			t := now.Add(e.config.Lockout.LockDuration)
			lockedUntil = &t
		}

		if err := e.accounts.RecordLoginFailure(ctx, acct.ID, attempts, lockedUntil, now); err != nil {
			log.Printf("accountd: record login failure: %v", err)
		}

		if lockedUntil != nil {
			e.emit(ctx, AuditEvent{EventType: auditEventLockout, AccountID: acct.ID,
				Metadata: map[string]string{"locked_until": lockedUntil.Format(time.RFC3339)}})
			e.emit(ctx, AuditEvent{EventType: auditEventLogin, AccountID: acct.ID, Error: errMessage(ErrAccountLocked)})
			return nil, ErrAccountLocked
		}
		e.emit(ctx, AuditEvent{EventType: auditEventLogin, AccountID: acct.ID, Error: errMessage(ErrInvalidCredentials)})

		return nil, ErrInvalidCredentials
	}

	if err := e.accounts.RecordLoginSuccess(ctx, acct.ID, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	acct.FailedLoginAttempts = 0
	acct.LockedUntil = nil
	acct.LastLoginAt = &now

	tok, err := e.tokens.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	sess := session.New(acct.ID, tok, input.Device,
		clientIPFromContext(ctx), userAgentFromContext(ctx), e.config.Session.TTL)
	if err := e.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventLogin, AccountID: acct.ID, SessionID: sess.ID, Success: true})

	return &LoginResult{Token: tok, Session: sess, Account: acct}, nil
}

// Logout revokes the session holding the token. Revoking an already revoked
// session is a no-op, but the token itself must be valid.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return ErrInvalidToken
	}

	now := time.Now().UTC()
	if err := e.sessions.Revoke(ctx, tokenStr, now); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventLogout, AccountID: claims.Subject, Success: true})

	return nil
}

// RefreshToken exchanges a valid token for a fresh one. The token must still
// belong to an active, unexpired session; a revoked session's token cannot be
// refreshed. The session keeps its identity and device metadata, its token is
// replaced, and its expiry extended.
func (e *Engine) RefreshToken(ctx context.Context, tokenStr string) (*RefreshResult, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	now := time.Now().UTC()

	sess, err := e.sessions.GetValidByToken(ctx, tokenStr, now)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.emit(ctx, AuditEvent{EventType: auditEventRefresh, AccountID: claims.Subject, Error: "no valid session"})
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	newToken, err := e.tokens.Issue(claims.Subject, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	expiresAt := now.Add(e.config.Session.TTL)
	if err := e.sessions.ReplaceToken(ctx, sess.ID, newToken, expiresAt, now); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventRefresh, AccountID: claims.Subject, SessionID: sess.ID, Success: true})

	return &RefreshResult{Token: newToken, SessionID: sess.ID}, nil
}

// ChangePassword verifies the current password, applies the policy to the new
// one, stores the new hash, and revokes every session of the account so old
// tokens cannot be refreshed.
func (e *Engine) ChangePassword(ctx context.Context, tokenStr, oldPassword, newPassword string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return ErrInvalidToken
	}

	acct, err := e.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if !e.hasher.Verify(oldPassword, acct.PasswordHash) {
		e.emit(ctx, AuditEvent{EventType: auditEventPasswordChange, AccountID: acct.ID, Error: errMessage(ErrInvalidPassword)})
		return ErrInvalidPassword
	}

	if err := e.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	now := time.Now().UTC()
	if err := e.accounts.UpdatePasswordHash(ctx, acct.ID, hash, now); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if _, err := e.sessions.RevokeAllForAccount(ctx, acct.ID, now); err != nil {
		log.Printf("accountd: revoke sessions after password change: %v", err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventPasswordChange, AccountID: acct.ID, Success: true})

	return nil
}

// ActiveSessions lists the caller's active sessions, newest first.
func (e *Engine) ActiveSessions(ctx context.Context, tokenStr string) ([]*session.Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sessions, err := e.sessions.ActiveForAccount(ctx, claims.Subject, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return sessions, nil
}

// ValidateToken reports the account ID behind a token if it is valid and its
// session is still active.
func (e *Engine) ValidateToken(ctx context.Context, tokenStr string) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return "", ErrInvalidToken
	}

	if _, err := e.sessions.GetValidByToken(ctx, tokenStr, time.Now().UTC()); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return claims.Subject, nil
}
