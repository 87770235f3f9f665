package accountd

import (
	"context"
	"errors"
	"fmt"

	"github.com/commutelife/accountd/account"
)

// Register validates the input, hashes the password, creates the account, and
// issues a token so the new account is signed in immediately. The phone number
// is optional; when present it must be well formed and unique. Validation and
// uniqueness failures leave no partial state behind. The email conflict check
// runs before the phone check, so an input that collides on both reports the
// email first.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	if !validEmail(input.Email) {
		return nil, ErrInvalidEmail
	}
	if input.Phone != "" && !validPhone(input.Phone) {
		return nil, ErrInvalidPhone
	}
	if err := e.checkPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	acct := account.New(input.Email, input.Phone, hash, input.Nickname)

	if err := e.accounts.Create(ctx, acct); err != nil {
		switch {
		case errors.Is(err, account.ErrEmailTaken):
			return nil, ErrEmailExists
		case errors.Is(err, account.ErrPhoneTaken):
			return nil, ErrPhoneExists
		default:
			return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		}
	}

	tok, err := e.tokens.Issue(acct.ID, acct.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventRegister, AccountID: acct.ID, Success: true})

	return &RegisterResult{Token: tok, Account: acct}, nil
}
