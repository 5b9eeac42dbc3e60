package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the mail server settings for the security mailbox
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	To       string
}

const eventBodyTemplate = `Security notification: {{ .Kind }}

{{ .Body }}
{{ range $key, $value := .Data }}{{ $key }}: {{ $value }}
{{ end }}`

// EmailNotifier delivers security notifications to a fixed mailbox
type EmailNotifier struct {
	config SMTPConfig
	client *mail.Client
	tmpl   *template.Template
}

// NewEmailNotifier creates a notifier against the given SMTP server
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if config.To == "" {
		return nil, fmt.Errorf("email notifier requires a 'To' address")
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	tmpl, err := template.New("event").Parse(eventBodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event template: %w", err)
	}

	return &EmailNotifier{config: config, client: client, tmpl: tmpl}, nil
}

// Notify sends the event to the security mailbox
func (n *EmailNotifier) Notify(ctx context.Context, event Event) error {
	var body bytes.Buffer
	if err := n.tmpl.Execute(&body, event); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(n.config.To); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(event.Subject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	slog.Info("Security notification sent", "kind", event.Kind, "to", n.config.To)
	return nil
}
