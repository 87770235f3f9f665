package accountd

import "errors"

var (
	// ErrEmailExists is returned when registering with an email already in use.
	ErrEmailExists = errors.New("email already registered")
	// ErrPhoneExists is returned when registering with a phone number already in use.
	ErrPhoneExists = errors.New("phone already registered")
	// ErrInvalidEmail is returned when an email fails format validation.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidPhone is returned when a phone number fails format validation.
	ErrInvalidPhone = errors.New("invalid phone format")
	// ErrPasswordPolicy is returned when a new password violates the password policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidCredentials covers both unknown identifiers and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while the account is inside a lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is returned for deactivated accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountNotFound is returned by account management operations.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidToken is returned for malformed, expired, or revoked tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidPassword is returned when the current password check fails on change.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrSendTooFrequent is returned when a destination is inside its resend cooldown.
	ErrSendTooFrequent = errors.New("verification code send too frequent")
	// ErrCodeInvalid is returned for wrong, missing, or expired verification codes.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeAttemptsExceeded is returned once a code's retry budget is spent.
	ErrCodeAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrGatewayUnavailable wraps failures of the SMS or mail provider.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrDependencyUnavailable wraps storage failures.
	ErrDependencyUnavailable = errors.New("backend dependency unavailable")
	// ErrEngineNotReady is returned when the engine was not built correctly.
	ErrEngineNotReady = errors.New("engine not initialized")
)
