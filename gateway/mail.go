package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MailClient sends verification codes through an HTTP mail provider.
type MailClient struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

// MailOption configures a [MailClient].
type MailOption func(*MailClient)

// WithMailHTTPClient overrides the HTTP client, mainly for tests.
func WithMailHTTPClient(c *http.Client) MailOption {
	return func(cl *MailClient) {
		cl.httpClient = c
	}
}

// NewMailClient returns a client for the provider at baseURL. The default
// HTTP client enforces a 10 second timeout per send.
func NewMailClient(serverToken, fromEmail, baseURL string, opts ...MailOption) *MailClient {
	c := &MailClient{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: defaultSendTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *MailClient) Configured() bool {
	return c.serverToken != ""
}

type mailMessage struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// SendCode delivers a verification code. A non-2xx provider response is an
// error; the caller must not store the code in that case.
func (c *MailClient) SendCode(ctx context.Context, email, code string) error {
	if !c.Configured() {
		return fmt.Errorf("mail client not configured: missing server token")
	}

	payload := mailMessage{
		From:     c.fromEmail,
		To:       email,
		Subject:  "Your verification code",
		TextBody: fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail provider error: status %d", resp.StatusCode)
	}

	return nil
}
