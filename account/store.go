package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates no live account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrEmailTaken indicates another live account already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPhoneTaken indicates another live account already uses the phone number.
	ErrPhoneTaken = errors.New("phone already registered")
)

const cols = `id, email, phone, password_hash, nickname, is_active,
	failed_login_attempts, locked_until, last_login_at, created_at, updated_at, deleted_at`

// Store persists accounts in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore returns a [Store] over the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new account. Conflicts with a live account's email or
// phone return [ErrEmailTaken] or [ErrPhoneTaken] and leave no partial row.
// An empty phone is stored as NULL, so phone-less accounts never collide.
func (s *Store) Create(ctx context.Context, a *Account) error {
	taken, err := s.emailTaken(ctx, a.Email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	var phone any
	if a.Phone != "" {
		taken, err = s.phoneTaken(ctx, a.Phone)
		if err != nil {
			return err
		}
		if taken {
			return ErrPhoneTaken
		}
		phone = a.Phone
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+cols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, phone, a.PasswordHash, a.Nickname, a.IsActive,
		a.FailedLoginAttempts, a.LockedUntil, a.LastLoginAt,
		a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	if err != nil {
		if conflict := conflictErr(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// conflictErr maps a unique-index violation raised by the insert to the
// matching sentinel. The pre-insert checks keep the common path ordered
// email-first; this covers the window between check and insert under
// concurrent registration.
func conflictErr(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "accounts.email"):
		return ErrEmailTaken
	case strings.Contains(msg, "accounts.phone"):
		return ErrPhoneTaken
	}
	return nil
}

// GetByEmail returns the live account with the given email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cols+` FROM accounts
		WHERE email = ? AND deleted_at IS NULL`, email)
	return scanAccount(row)
}

// GetByPhone returns the live account with the given phone number.
func (s *Store) GetByPhone(ctx context.Context, phone string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cols+` FROM accounts
		WHERE phone = ? AND deleted_at IS NULL`, phone)
	return scanAccount(row)
}

// GetByID returns the live account with the given ID.
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cols+` FROM accounts
		WHERE id = ? AND deleted_at IS NULL`, id)
	return scanAccount(row)
}

// UpdatePasswordHash replaces the stored credential hash.
func (s *Store) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts SET password_hash = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, hash, now, id)
}

// RecordLoginFailure stores the new failure count and, when the lockout
// threshold was crossed, the time until which logins are rejected.
func (s *Store) RecordLoginFailure(ctx context.Context, id string, attempts int, lockedUntil *time.Time, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts SET failed_login_attempts = ?, locked_until = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, attempts, lockedUntil, now, id)
}

// RecordLoginSuccess clears the failure counter and lockout and stamps the
// last login time.
func (s *Store) RecordLoginSuccess(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
}

// Unlock clears any lockout window and failure count without logging in.
func (s *Store) Unlock(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts SET failed_login_attempts = 0, locked_until = NULL, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, id)
}

// SetActive toggles the account's active flag.
func (s *Store) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts SET is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, active, now, id)
}

// SoftDelete marks the account deleted and inactive. The row is kept.
func (s *Store) SoftDelete(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, `
		UPDATE accounts SET is_active = 0, deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Store) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM accounts
		WHERE email = ? AND deleted_at IS NULL`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (s *Store) phoneTaken(ctx context.Context, phone string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM accounts
		WHERE phone = ? AND deleted_at IS NULL`, phone).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check phone: %w", err)
	}
	return n > 0, nil
}

func scanAccount(scanner interface{ Scan(...any) error }) (*Account, error) {
	var (
		a           Account
		phone       sql.NullString
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
		deletedAt   sql.NullTime
	)

	err := scanner.Scan(
		&a.ID, &a.Email, &phone, &a.PasswordHash, &a.Nickname, &a.IsActive,
		&a.FailedLoginAttempts, &lockedUntil, &lastLogin,
		&a.CreatedAt, &a.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	a.Phone = phone.String
	if lockedUntil.Valid {
		t := lockedUntil.Time
		a.LockedUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		a.DeletedAt = &t
	}

	return &a, nil
}
