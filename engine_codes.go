package accountd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commutelife/accountd/otp"
)

// SendVerifyCode generates a verification code, delivers it over the chosen
// channel, and stores it. The code is stored only after the gateway confirms
// the send, so a delivery failure never leaves a verifiable code behind.
// Destinations inside their resend cooldown get [ErrSendTooFrequent].
func (e *Engine) SendVerifyCode(ctx context.Context, channel Channel, destination string) error {
	if e == nil || e.codes == nil {
		return ErrEngineNotReady
	}

	switch channel {
	case ChannelSMS:
		if !validPhone(destination) {
			return ErrInvalidPhone
		}
	case ChannelEmail:
		if !validEmail(destination) {
			return ErrInvalidEmail
		}
	default:
		return fmt.Errorf("unknown channel %d", channel)
	}

	ok, err := e.codes.CanSend(ctx, destination)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if !ok {
		return ErrSendTooFrequent
	}

	code, err := e.codes.GenerateCode()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	sendErr := e.deliver(ctx, channel, destination, code)
	if sendErr != nil {
		e.emit(ctx, AuditEvent{EventType: auditEventCodeSend, Destination: destination, Error: errMessage(sendErr)})
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, sendErr)
	}

	if err := e.codes.Save(ctx, destination, code); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	e.emit(ctx, AuditEvent{EventType: auditEventCodeSend, Destination: destination, Success: true})

	return nil
}

func (e *Engine) deliver(ctx context.Context, channel Channel, destination, code string) error {
	switch channel {
	case ChannelEmail:
		return e.mail.SendCode(ctx, destination, code)
	default:
		return e.sms.SendCode(ctx, destination, code)
	}
}

// VerifyCode consumes the code stored for the destination. A match deletes
// the code, so it cannot be replayed. Mismatches burn retries; once the
// budget is spent the destination must request a new code.
func (e *Engine) VerifyCode(ctx context.Context, destination, code string) error {
	if e == nil || e.codes == nil {
		return ErrEngineNotReady
	}

	err := e.codes.Verify(ctx, destination, code)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrAttemptsExceeded):
			e.emit(ctx, AuditEvent{EventType: auditEventCodeVerify, Destination: destination, Error: errMessage(ErrCodeAttemptsExceeded)})
			return ErrCodeAttemptsExceeded
		case errors.Is(err, otp.ErrCodeNotFound), errors.Is(err, otp.ErrCodeMismatch):
			e.emit(ctx, AuditEvent{EventType: auditEventCodeVerify, Destination: destination, Error: errMessage(ErrCodeInvalid)})
			return ErrCodeInvalid
		default:
			return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		}
	}

	e.emit(ctx, AuditEvent{EventType: auditEventCodeVerify, Destination: destination, Success: true})

	return nil
}

// CodeSendWait returns how long the destination must wait before it may be
// sent another code. Zero means a send is allowed now.
func (e *Engine) CodeSendWait(ctx context.Context, destination string) (time.Duration, error) {
	if e == nil || e.codes == nil {
		return 0, ErrEngineNotReady
	}

	wait, err := e.codes.RemainingSendWait(ctx, destination)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return wait, nil
}

// CodeRetriesLeft returns how many failed verification attempts remain for
// the destination's current code.
func (e *Engine) CodeRetriesLeft(ctx context.Context, destination string) (int, error) {
	if e == nil || e.codes == nil {
		return 0, ErrEngineNotReady
	}

	remaining, err := e.codes.RemainingRetries(ctx, destination)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return remaining, nil
}
