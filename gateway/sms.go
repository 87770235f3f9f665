package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultSendTimeout = 10 * time.Second

// SMSClient sends verification codes through an HTTP SMS provider.
type SMSClient struct {
	apiKey     string
	signName   string
	baseURL    string
	httpClient *http.Client
}

// SMSOption configures an [SMSClient].
type SMSOption func(*SMSClient)

// WithSMSHTTPClient overrides the HTTP client, mainly for tests.
func WithSMSHTTPClient(c *http.Client) SMSOption {
	return func(cl *SMSClient) {
		cl.httpClient = c
	}
}

// NewSMSClient returns a client for the provider at baseURL. The default
// HTTP client enforces a 10 second timeout per send.
func NewSMSClient(apiKey, signName, baseURL string, opts ...SMSOption) *SMSClient {
	c := &SMSClient{
		apiKey:     apiKey,
		signName:   signName,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultSendTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *SMSClient) Configured() bool {
	return c.apiKey != ""
}

type smsMessage struct {
	Phone    string `json:"phone"`
	SignName string `json:"sign_name"`
	Template string `json:"template"`
	Code     string `json:"code"`
}

// SendCode delivers a verification code. A non-2xx provider response is an
// error; the caller must not store the code in that case.
func (c *SMSClient) SendCode(ctx context.Context, phone, code string) error {
	if !c.Configured() {
		return fmt.Errorf("sms client not configured: missing api key")
	}

	payload := smsMessage{
		Phone:    phone,
		SignName: c.signName,
		Template: "verify_code",
		Code:     code,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sms/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sms provider error: status %d", resp.StatusCode)
	}

	return nil
}
