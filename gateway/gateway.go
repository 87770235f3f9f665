// Package gateway sends verification codes through external SMS and mail
// providers. Calls are synchronous with bounded timeouts; a code is only
// persisted by the caller after the gateway confirms the send.
package gateway

import (
	"context"
	"log/slog"
)

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// MailSender delivers a verification code to an email address.
type MailSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogSender logs codes instead of delivering them. It stands in for both
// senders in development when no provider is configured.
type LogSender struct {
	Logger *slog.Logger
}

// SendCode writes the destination and code to the log.
func (l LogSender) SendCode(ctx context.Context, dest, code string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "verification code (gateway not configured)",
		slog.String("destination", dest),
		slog.String("code", code))
	return nil
}
