package accountd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/commutelife/accountd/account"
)

// GetAccount returns the live account with the given ID.
func (e *Engine) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	acct, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return acct, nil
}

// SetAccountActive toggles the account's active flag. Deactivating revokes
// every open session so the account cannot keep refreshing tokens.
func (e *Engine) SetAccountActive(ctx context.Context, accountID string, active bool) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	now := time.Now().UTC()
	if err := e.accounts.SetActive(ctx, accountID, active, now); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if !active {
		if _, err := e.sessions.RevokeAllForAccount(ctx, accountID, now); err != nil {
			log.Printf("accountd: revoke sessions on deactivate: %v", err)
		}
	}

	e.emit(ctx, AuditEvent{EventType: auditEventAccountStatus, AccountID: accountID, Success: true,
		Metadata: map[string]string{"active": fmt.Sprint(active)}})

	return nil
}

// UnlockAccount clears an account's lockout window and failure counter.
func (e *Engine) UnlockAccount(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	if err := e.accounts.Unlock(ctx, accountID, time.Now().UTC()); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return nil
}

// DeleteAccount soft-deletes the account and revokes all of its sessions.
// The row is kept with a deletion timestamp; the email and phone become
// available for registration again.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) error {
	if e == nil || e.accounts == nil {
		return ErrEngineNotReady
	}

	now := time.Now().UTC()
	if err := e.accounts.SoftDelete(ctx, accountID, now); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	if _, err := e.sessions.RevokeAllForAccount(ctx, accountID, now); err != nil {
		log.Printf("accountd: revoke sessions on delete: %v", err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventAccountDelete, AccountID: accountID, Success: true})

	return nil
}
