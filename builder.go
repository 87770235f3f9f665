package accountd

import (
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/commutelife/accountd/account"
	"github.com/commutelife/accountd/gateway"
	"github.com/commutelife/accountd/otp"
	"github.com/commutelife/accountd/password"
	"github.com/commutelife/accountd/session"
	"github.com/commutelife/accountd/token"
)

// Builder wires the engine's dependencies. Every dependency is passed in
// explicitly; Build validates the assembled configuration before returning
// a usable [Engine].
type Builder struct {
	config Config
	db     *sql.DB
	redis  redis.UniversalClient

	sms  gateway.SMSSender
	mail gateway.MailSender

	auditSink AuditSink

	built bool
}

// New returns a [Builder] preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenSecret sets the access token signing secret.
func (b *Builder) WithTokenSecret(secret []byte) *Builder {
	b.config.Token.Secret = cloneBytes(secret)
	return b
}

// WithDB sets the SQLite handle backing the account and session tables.
func (b *Builder) WithDB(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithRedis sets the Redis client backing the verification code store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSMSSender sets the SMS gateway for verification codes.
func (b *Builder) WithSMSSender(sender gateway.SMSSender) *Builder {
	b.sms = sender
	return b
}

// WithMailSender sets the mail gateway for verification codes.
func (b *Builder) WithMailSender(sender gateway.MailSender) *Builder {
	b.mail = sender
	return b
}

// WithAuditSink enables auditing and routes events to the sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// Build validates the configuration and dependencies and returns the engine.
// The builder is single use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.db == nil {
		return nil, errors.New("database handle required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Cost: cfg.Password.Cost,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: cloneBytes(cfg.Token.Secret),
		TTL:    cfg.Token.TTL,
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		accounts: account.NewStore(b.db),
		sessions: session.NewStore(b.db),
		codes: otp.NewStore(b.redis, otp.Config{
			Prefix:       cfg.OTP.Prefix,
			CodeTTL:      cfg.OTP.CodeTTL,
			SendInterval: cfg.OTP.SendInterval,
			RetryTTL:     cfg.OTP.RetryTTL,
			MaxRetries:   cfg.OTP.MaxRetries,
			Digits:       cfg.OTP.Digits,
		}),
		hasher: hasher,
		tokens: tokens,
		sms:    b.sms,
		mail:   b.mail,
		audit:  newAuditDispatcher(cfg.Audit, b.auditSink),
	}

	if engine.sms == nil {
		engine.sms = gateway.LogSender{}
	}
	if engine.mail == nil {
		engine.mail = gateway.LogSender{}
	}

	b.built = true

	return engine, nil
}
