// Package session stores the durable login session registry. Sessions record
// which device holds which access token; revoking a session makes its token
// unusable for refresh regardless of the token's own expiry.
package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDeviceType is recorded when the client does not report one.
const DefaultDeviceType = "UNKNOWN"

// Device describes the client that opened a session.
type Device struct {
	ID    string
	Type  string
	Name  string
	Model string
}

// Session is one device login. IsActive is cleared on logout or revocation;
// ExpiresAt bounds the session's lifetime independently of activity.
type Session struct {
	ID             string
	AccountID      string
	Token          string
	DeviceID       string
	DeviceType     string
	DeviceName     string
	DeviceModel    string
	IPAddress      string
	UserAgent      string
	IsActive       bool
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// New returns an active session with a fresh ID and timestamps set. A missing
// device ID gets a random one and a missing device type becomes
// [DefaultDeviceType], so every stored session is attributable to a device.
// All timestamps are UTC.
func New(accountID, token string, device Device, ip, userAgent string, ttl time.Duration) *Session {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.Type == "" {
		device.Type = DefaultDeviceType
	}

	now := time.Now().UTC()
	return &Session{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		Token:          token,
		DeviceID:       device.ID,
		DeviceType:     device.Type,
		DeviceName:     device.Name,
		DeviceModel:    device.Model,
		IPAddress:      ip,
		UserAgent:      userAgent,
		IsActive:       true,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
	}
}

// Valid reports whether the session is active and unexpired at the given time.
func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
