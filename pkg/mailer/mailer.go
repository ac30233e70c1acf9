package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/Notifuse/mailblocks/pkg/logger"
)

//go:generate mockgen -destination=../../internal/domain/mocks/mock_mailer.go -package=mocks github.com/Notifuse/mailblocks/pkg/mailer Mailer

// Mailer is the interface for sending emails
type Mailer interface {
	// Send delivers a rendered template to a single recipient
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered email with its plain text alternative
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Config holds the configuration for the mailer
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	UseTLS       bool
}

// SMTPMailer implements the Mailer interface using SMTP
type SMTPMailer struct {
	config *Config
}

func NewSMTPMailer(config *Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// Send builds the MIME message and delivers it over SMTP
func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	msg, err := m.buildMessage(message)
	if err != nil {
		return err
	}

	client, err := m.createSMTPClient()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(message Message) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())

	if err := msg.FromFormat(m.config.FromName, m.config.FromEmail); err != nil {
		return nil, fmt.Errorf("failed to set email from address: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("failed to set email recipient: %w", err)
	}
	msg.Subject(message.Subject)

	msg.SetBodyString(mail.TypeTextHTML, message.HTML)
	if message.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, message.Text)
	}
	return msg, nil
}

func (m *SMTPMailer) createSMTPClient() (*mail.Client, error) {
	policy := mail.TLSOpportunistic
	if m.config.UseTLS {
		policy = mail.TLSMandatory
	}

	clientOptions := []mail.Option{
		mail.WithPort(m.config.SMTPPort),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(10 * time.Second),
	}

	// Unauthenticated relays are allowed
	if m.config.SMTPUsername != "" && m.config.SMTPPassword != "" {
		clientOptions = append(clientOptions,
			mail.WithUsername(m.config.SMTPUsername),
			mail.WithPassword(m.config.SMTPPassword),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	client, err := mail.NewClient(m.config.SMTPHost, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

// ConsoleMailer logs emails instead of sending them. Used when no SMTP host is configured.
type ConsoleMailer struct {
	logger logger.Logger
}

func NewConsoleMailer(log logger.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: log}
}

func (m *ConsoleMailer) Send(_ context.Context, message Message) error {
	m.logger.WithFields(map[string]interface{}{
		"to":         message.To,
		"subject":    message.Subject,
		"html_bytes": len(message.HTML),
		"text_bytes": len(message.Text),
	}).Info("Email not sent, no SMTP host configured")
	return nil
}
