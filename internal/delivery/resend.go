package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"newsroom/internal/logger"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// DefaultResendBaseURL is the Resend HTTP API endpoint.
const DefaultResendBaseURL = "https://api.resend.com"

// ResendConfig configures ResendTransport.
type ResendConfig struct {
	APIKey   string
	BaseURL  string
	From     string
	FromName string
	Timeout  time.Duration
}

// ResendTransport sends mail through the Resend email API.
type ResendTransport struct {
	cfg    ResendConfig
	client *resend.Client
	err    error
}

// NewResendTransport creates a ResendTransport. An unusable base URL surfaces on Send.
func NewResendTransport(cfg ResendConfig) *ResendTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultResendBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resend.NewCustomClient(&http.Client{Timeout: cfg.Timeout}, cfg.APIKey)
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return &ResendTransport{cfg: cfg, err: fmt.Errorf("invalid resend base URL %q: %w", cfg.BaseURL, err)}
	}
	client.BaseURL = base

	return &ResendTransport{cfg: cfg, client: client}
}

// Send implements Transport. Retries of one message share its idempotency key.
func (t *ResendTransport) Send(ctx context.Context, msg Message) error {
	if t.err != nil {
		return t.err
	}
	if t.cfg.APIKey == "" {
		return fmt.Errorf("resend transport misconfigured: missing API key")
	}

	from := t.cfg.From
	if t.cfg.FromName != "" {
		from = (&mail.Address{Name: t.cfg.FromName, Address: t.cfg.From}).String()
	}
	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.Recipient},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	sent, err := t.client.Emails.SendWithOptions(ctx, req, &resend.SendEmailOptions{IdempotencyKey: msg.ID})
	if err != nil {
		return fmt.Errorf("resend error: %w", err)
	}
	if sent != nil && sent.Id != "" {
		logger.Debug("Resend accepted email", "recipient", msg.Recipient, "email_id", sent.Id)
	}
	return nil
}
