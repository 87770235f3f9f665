package accountd

import (
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Session.TTL != 7200*time.Second {
		t.Errorf("session TTL = %v", cfg.Session.TTL)
	}
	if cfg.Token.TTL != 24*time.Hour {
		t.Errorf("token TTL = %v", cfg.Token.TTL)
	}
	if cfg.Lockout.MaxFailures != 5 || cfg.Lockout.LockDuration != 30*time.Minute {
		t.Errorf("lockout = %+v", cfg.Lockout)
	}
	if cfg.OTP.CodeTTL != 5*time.Minute || cfg.OTP.SendInterval != time.Minute || cfg.OTP.MaxRetries != 5 || cfg.OTP.Digits != 6 {
		t.Errorf("otp = %+v", cfg.OTP)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.Token.Secret = []byte("short") }},
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"negative sweep", func(c *Config) { c.Session.SweepInterval = -time.Minute }},
		{"weak min length", func(c *Config) { c.Password.MinLength = 4 }},
		{"zero max failures", func(c *Config) { c.Lockout.MaxFailures = 0 }},
		{"zero lock duration", func(c *Config) { c.Lockout.LockDuration = 0 }},
		{"zero code ttl", func(c *Config) { c.OTP.CodeTTL = 0 }},
		{"send interval above code ttl", func(c *Config) { c.OTP.SendInterval = time.Hour }},
		{"zero retries", func(c *Config) { c.OTP.MaxRetries = 0 }},
		{"bad digits", func(c *Config) { c.OTP.Digits = 2 }},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestCloneConfigCopiesSecret(t *testing.T) {
	cfg := validTestConfig()
	clone := cloneConfig(cfg)

	clone.Token.Secret[0] = 'X'
	if cfg.Token.Secret[0] == 'X' {
		t.Error("clone shares the secret slice")
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Error("Build without dependencies must fail")
	}
}
