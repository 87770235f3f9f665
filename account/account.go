// Package account holds the durable user account model and its SQLite store.
package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered user. Lockout state lives on the row itself:
// FailedLoginAttempts counts consecutive failures and LockedUntil, when set,
// rejects logins until it passes. Deleted accounts keep their row with
// DeletedAt set so historical sessions stay attributable.
type Account struct {
	ID                  string
	Email               string
	Phone               string
	PasswordHash        string
	Nickname            string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// New returns an active account with a fresh ID and creation timestamps set.
// All timestamps are UTC.
func New(email, phone, passwordHash, nickname string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Nickname:     nickname,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Locked reports whether the account is inside an active lockout window.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Deleted reports whether the account has been soft-deleted.
func (a *Account) Deleted() bool {
	return a.DeletedAt != nil
}
