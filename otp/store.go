// Package otp stores short-lived verification codes in Redis.
//
// Each destination (a phone number or email address) owns three keys under a
// common prefix: the code itself, a send marker that throttles resends, and a
// retry counter that caps failed verification attempts. Verification is a
// single Lua script, so the read-compare-increment cycle is atomic per
// destination.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCodeNotFound indicates no code is stored for the destination, or it expired.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrCodeMismatch indicates the submitted code did not match the stored one.
	ErrCodeMismatch = errors.New("verification code mismatch")
	// ErrAttemptsExceeded indicates the retry budget for the destination is spent.
	ErrAttemptsExceeded = errors.New("verification attempts exceeded")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("otp redis unavailable")
)

// Config holds code lifetime and retry parameters.
type Config struct {
	Prefix       string        // key namespace, default "otp"
	CodeTTL      time.Duration // lifetime of a stored code
	SendInterval time.Duration // minimum gap between sends to one destination
	RetryTTL     time.Duration // lifetime of the retry counter
	MaxRetries   int           // failed attempts before the code is invalidated
	Digits       int           // code length
}

// Store keeps verification codes in Redis.
type Store struct {
	redis  redis.UniversalClient
	config Config
}

// verifyLua atomically checks the retry budget, compares the submitted code,
// and either consumes the code or increments the retry counter.
// KEYS[1] = code key
// KEYS[2] = retry key
// ARGV[1] = submitted code
// ARGV[2] = max retries
// ARGV[3] = retry counter TTL in milliseconds
//
// Returns 1 on success, or an error string:
// "attempts_exceeded", "not_found", "mismatch".
var verifyLua = redis.NewScript(`
local retries = tonumber(redis.call('GET', KEYS[2]) or '0')
if retries >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1], KEYS[2])
  return {err='attempts_exceeded'}
end

local code = redis.call('GET', KEYS[1])
if not code then
  return {err='not_found'}
end

if code ~= ARGV[1] then
  local ttl = redis.call('PTTL', KEYS[2])
  if ttl <= 0 then
    ttl = tonumber(ARGV[3])
  end
  redis.call('SET', KEYS[2], tostring(retries + 1), 'PX', ttl)
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1], KEYS[2])
return 1
`)

// NewStore returns a [Store] backed by the given Redis client.
func NewStore(redisClient redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = "otp"
	}
	return &Store{
		redis:  redisClient,
		config: cfg,
	}
}

func (s *Store) codeKey(dest string) string  { return s.config.Prefix + ":code:" + dest }
func (s *Store) sendKey(dest string) string  { return s.config.Prefix + ":send:" + dest }
func (s *Store) retryKey(dest string) string { return s.config.Prefix + ":retry:" + dest }

// GenerateCode returns a random numeric code of the configured length.
func (s *Store) GenerateCode() (string, error) {
	digits := s.config.Digits
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// Save stores a freshly sent code for the destination. The code, send marker,
// and retry counter are written in one transaction so a partially stored code
// can never be observed.
func (s *Store) Save(ctx context.Context, dest, code string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.codeKey(dest), code, s.config.CodeTTL)
		pipe.Set(ctx, s.sendKey(dest), "1", s.config.SendInterval)
		pipe.Set(ctx, s.retryKey(dest), "0", s.config.RetryTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// CanSend reports whether the destination is outside its resend cooldown.
func (s *Store) CanSend(ctx context.Context, dest string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.sendKey(dest)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 0, nil
}

// RemainingSendWait returns how long until the destination may be sent
// another code. Zero means a send is allowed now.
func (s *Store) RemainingSendWait(ctx context.Context, dest string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, s.sendKey(dest)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Verify consumes the code stored for the destination. A match deletes the
// code and its retry counter. A mismatch increments the counter; once the
// budget is spent the code is deleted and even the correct code is rejected.
func (s *Store) Verify(ctx context.Context, dest, code string) error {
	result, err := verifyLua.Run(ctx, s.redis,
		[]string{s.codeKey(dest), s.retryKey(dest)},
		code,
		s.config.MaxRetries,
		s.config.RetryTTL.Milliseconds(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "attempts_exceeded":
			return ErrAttemptsExceeded
		case "not_found":
			return ErrCodeNotFound
		case "mismatch":
			return ErrCodeMismatch
		default:
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if n, ok := result.(int64); !ok || n != 1 {
		return fmt.Errorf("%w: unexpected lua result", ErrRedisUnavailable)
	}

	return nil
}

// RemainingRetries returns how many failed attempts the destination has left.
// Missing counters report the full budget.
func (s *Store) RemainingRetries(ctx context.Context, dest string) (int, error) {
	count, err := s.redis.Get(ctx, s.retryKey(dest)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.config.MaxRetries, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	remaining := s.config.MaxRetries - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Invalidate removes any stored code and counters for the destination.
func (s *Store) Invalidate(ctx context.Context, dest string) error {
	keys := []string{s.codeKey(dest), s.sendKey(dest), s.retryKey(dest)}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
