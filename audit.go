package accountd

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/commutelife/accountd/internal/audit"
)

// AuditEvent is the event model delivered to audit sinks.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events emitted by the engine.
type AuditSink = internalaudit.Sink

// NewAuditChannelSink returns a sink that buffers events in a channel.
func NewAuditChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewAuditJSONWriterSink returns a sink that writes one JSON event per line.
func NewAuditJSONWriterSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

const (
	auditEventRegister       = "auth.register"
	auditEventLogin          = "auth.login"
	auditEventLockout        = "auth.lockout"
	auditEventLogout         = "auth.logout"
	auditEventRefresh        = "auth.refresh"
	auditEventPasswordChange = "auth.password_change"
	auditEventCodeSend       = "auth.code_send"
	auditEventCodeVerify     = "auth.code_verify"
	auditEventAccountStatus  = "account.status"
	auditEventAccountDelete  = "account.delete"
)

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
