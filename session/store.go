package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates no valid session matches the lookup.
var ErrNotFound = errors.New("session not found")

const cols = `id, account_id, token, device_id, device_type, device_name, device_model,
	ip_address, user_agent, is_active, created_at, expires_at, last_activity_at`

// Store persists sessions in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore returns a [Store] over the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a session.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+cols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AccountID, sess.Token, sess.DeviceID, sess.DeviceType,
		sess.DeviceName, sess.DeviceModel, sess.IPAddress, sess.UserAgent,
		sess.IsActive, sess.CreatedAt, sess.ExpiresAt, sess.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetValidByToken returns the active, unexpired session holding the token and
// bumps its last activity time. Revoked or expired sessions return
// [ErrNotFound].
func (s *Store) GetValidByToken(ctx context.Context, token string, now time.Time) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cols+` FROM sessions
		WHERE token = ? AND is_active = 1 AND expires_at > ?`, token, now)

	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	if err := s.touch(ctx, sess.ID, now); err != nil {
		return nil, err
	}
	sess.LastActivityAt = now

	return sess, nil
}

// touch bumps last_activity_at, re-checking validity so a session revoked
// after the select is neither touched nor returned.
func (s *Store) touch(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = ?
		WHERE id = ? AND is_active = 1 AND expires_at > ?`, now, id, now)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// ReplaceToken swaps the session's token and extends its expiry. Used when a
// token is refreshed so the registry keeps tracking the live credential.
func (s *Store) ReplaceToken(ctx context.Context, id, newToken string, expiresAt, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET token = ?, expires_at = ?, last_activity_at = ?
		WHERE id = ? AND is_active = 1`, newToken, expiresAt, now, id)
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Revoke deactivates the session holding the token. Revoking an unknown or
// already revoked token is a no-op.
func (s *Store) Revoke(ctx context.Context, token string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = 0, last_activity_at = ?
		WHERE token = ? AND is_active = 1`, now, token)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAllForAccount deactivates every active session of the account and
// returns how many were revoked.
func (s *Store) RevokeAllForAccount(ctx context.Context, accountID string, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_active = 0, last_activity_at = ?
		WHERE account_id = ? AND is_active = 1`, now, accountID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}

	return res.RowsAffected()
}

// ActiveForAccount lists the account's active, unexpired sessions, newest
// first.
func (s *Store) ActiveForAccount(ctx context.Context, accountID string, now time.Time) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cols+` FROM sessions
		WHERE account_id = ? AND is_active = 1 AND expires_at > ?
		ORDER BY created_at DESC`, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// CountActiveForAccount returns the number of active, unexpired sessions.
func (s *Store) CountActiveForAccount(ctx context.Context, accountID string, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM sessions
		WHERE account_id = ? AND is_active = 1 AND expires_at > ?`, accountID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return n, nil
}

// SweepExpired deletes sessions past their expiry and returns how many rows
// were removed. Revoked-but-unexpired sessions are kept for listing history.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}

	return res.RowsAffected()
}

func scanSession(scanner interface{ Scan(...any) error }) (*Session, error) {
	var sess Session

	err := scanner.Scan(
		&sess.ID, &sess.AccountID, &sess.Token, &sess.DeviceID, &sess.DeviceType,
		&sess.DeviceName, &sess.DeviceModel, &sess.IPAddress, &sess.UserAgent,
		&sess.IsActive, &sess.CreatedAt, &sess.ExpiresAt, &sess.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &sess, nil
}
