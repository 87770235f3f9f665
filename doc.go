// Package accountd implements the account and session backend for the
// CommuteLife apps: registration, credential login with lockout, JWT access
// tokens, a durable per-device session registry, and SMS/email verification
// codes.
//
// # Architecture
//
// The [Engine] orchestrates the flows and owns no storage of its own.
// Durable state (accounts, sessions) lives in SQLite; volatile state
// (verification codes, resend cooldowns, retry counters) lives in Redis.
// Outbound deliveries go through the gateway package and are synchronous
// with bounded timeouts.
//
// # Usage
//
//	db, err := database.Open("accountd.db")
//	...
//	engine, err := accountd.New().
//		WithTokenSecret(secret).
//		WithDB(db).
//		WithRedis(redisClient).
//		WithSMSSender(smsClient).
//		Build()
//
// Request-scoped metadata (client IP, user agent) is attached to the context
// with [WithClientIP] and [WithUserAgent] and recorded on created sessions.
package accountd
