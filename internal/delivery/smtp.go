package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig configures SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPTransport sends HTML mail through an SMTP relay, upgrading with STARTTLS when offered.
type SMTPTransport struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPTransport creates an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPTransport{cfg: cfg, now: time.Now}
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := t.compose(msg)
	if err != nil {
		return err
	}

	client, err := t.client()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", t.cfg.Host, t.cfg.Port, err)
	}
	return nil
}

func (t *SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{ServerName: t.cfg.Host, MinVersion: tls.VersionTLS12}),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}

	client, err := mail.NewClient(t.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

// compose builds the MIME message for one newsletter.
func (t *SMTPTransport) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if t.cfg.FromName != "" {
		if err := m.FromFormat(t.cfg.FromName, t.cfg.From); err != nil {
			return nil, fmt.Errorf("invalid from address %q: %w", t.cfg.From, err)
		}
	} else if err := m.From(t.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", t.cfg.From, err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.Recipient, err)
	}

	m.Subject(msg.Subject)
	m.SetDateWithValue(t.now())
	if msg.ID != "" {
		m.SetMessageIDWithValue(msg.ID + "@newsroom")
	} else {
		m.SetMessageID()
	}
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
