package accountd

import (
	"errors"
	"time"
)

// Config holds all engine tuning parameters. Configure it once before
// [Builder.Build] and treat it as immutable afterwards.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	OTP      OTPConfig
	Audit    AuditConfig
}

// TokenConfig controls access token signing.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// SessionConfig controls the session registry.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// PasswordConfig controls credential hashing and the password policy.
type PasswordConfig struct {
	Cost      int
	MinLength int
}

// LockoutConfig controls the account lockout policy. Reaching MaxFailures
// consecutive failed logins locks the account for LockDuration.
type LockoutConfig struct {
	MaxFailures  int
	LockDuration time.Duration
}

// OTPConfig controls verification code lifetimes.
type OTPConfig struct {
	Prefix       string
	CodeTTL      time.Duration
	SendInterval time.Duration
	RetryTTL     time.Duration
	MaxRetries   int
	Digits       int
}

// AuditConfig controls the audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the configuration [New] starts from.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    24 * time.Hour,
			Issuer: "accountd",
		},
		Session: SessionConfig{
			TTL:           7200 * time.Second,
			SweepInterval: 10 * time.Minute,
		},
		Password: PasswordConfig{
			Cost:      10,
			MinLength: 8,
		},
		Lockout: LockoutConfig{
			MaxFailures:  5,
			LockDuration: 30 * time.Minute,
		},
		OTP: OTPConfig{
			Prefix:       "otp",
			CodeTTL:      5 * time.Minute,
			SendInterval: time.Minute,
			RetryTTL:     5 * time.Minute,
			MaxRetries:   5,
			Digits:       6,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// Validate checks the configuration for inconsistent or missing values.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("Token.Secret must be at least 32 bytes")
	}
	if c.Token.TTL <= 0 {
		return errors.New("Token.TTL must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session.TTL must be positive")
	}
	if c.Session.SweepInterval < 0 {
		return errors.New("Session.SweepInterval must not be negative")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password.MinLength must be at least 8")
	}
	if c.Lockout.MaxFailures <= 0 {
		return errors.New("Lockout.MaxFailures must be positive")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("Lockout.LockDuration must be positive")
	}
	if c.OTP.CodeTTL <= 0 {
		return errors.New("OTP.CodeTTL must be positive")
	}
	if c.OTP.SendInterval <= 0 {
		return errors.New("OTP.SendInterval must be positive")
	}
	if c.OTP.SendInterval > c.OTP.CodeTTL {
		return errors.New("OTP.SendInterval must not exceed OTP.CodeTTL")
	}
	if c.OTP.RetryTTL <= 0 {
		return errors.New("OTP.RetryTTL must be positive")
	}
	if c.OTP.MaxRetries <= 0 {
		return errors.New("OTP.MaxRetries must be positive")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP.Digits must be between 4 and 10")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when auditing is enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
