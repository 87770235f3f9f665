package accountd

import (
	"github.com/commutelife/accountd/account"
	"github.com/commutelife/accountd/session"
)

// RegisterInput is the payload for [Engine.Register].
type RegisterInput struct {
	Email    string
	Phone    string
	Password string
	Nickname string
}

// RegisterResult is returned by [Engine.Register]. The token lets the new
// account authenticate immediately without a separate login.
type RegisterResult struct {
	Token   string
	Account *account.Account
}

// LoginInput is the payload for [Engine.Login]. Device fields are optional;
// missing values are defaulted when the session is created.
type LoginInput struct {
	Email    string
	Password string
	Device   session.Device
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Token   string
	Session *session.Session
	Account *account.Account
}

// RefreshResult is returned by [Engine.RefreshToken].
type RefreshResult struct {
	Token     string
	SessionID string
}

// Channel selects the delivery route for a verification code.
type Channel int

const (
	// ChannelSMS delivers codes by text message.
	ChannelSMS Channel = iota
	// ChannelEmail delivers codes by email.
	ChannelEmail
)
