package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inbucket/html2text"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	Notify   []string `mapstructure:"notify"` // Addresses notified about new access requests
}

// Message represents an email message
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string // optional, will be auto-generated from HTML if empty
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Client sends mail through an SMTP relay.
type Client struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewClient creates a new email client
func NewClient(cfg SMTPConfig) (*Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &Client{cfg: cfg, client: client}, nil
}

// Send sends an email message
func (c *Client) Send(ctx context.Context, msg *Message) error {
	m, err := c.build(msg)
	if err != nil {
		return err
	}
	return c.client.DialAndSendWithContext(ctx, m)
}

func (c *Client) build(msg *Message) (*mail.Msg, error) {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := mail.NewMsg()
	if err := m.From(c.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// htmlToText converts HTML to plain text
func htmlToText(htmlContent string) (string, error) {
	text, err := html2text.FromString(htmlContent, html2text.Options{
		PrettyTables: true,
		OmitLinks:    false,
	})
	if err != nil {
		slog.Error("failed to convert HTML to text", "error", err)
		return "", err
	}
	return text, nil
}
