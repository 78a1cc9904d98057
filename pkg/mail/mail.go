package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message represents an outbound email.
type Message struct {
	To      string
	ToName  string
	ReplyTo string
	Subject string
	Body    string
	HTML    string
}

// Sender delivers an email. Implementations can be swapped (SendGrid,
// SMTP relay, log-only) without changing callers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers mail through the SendGrid API.
type SendGridSender struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

// SendGridConfig holds the SendGrid credentials and sender identity.
type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
}

// NewSendGridSender builds a SendGrid-backed sender. Returns an error when
// the API key is missing so misconfiguration fails at startup, not send time.
func NewSendGridSender(cfg SendGridConfig, logger *zap.Logger) (*SendGridSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mail: sendgrid api key required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridSender{
		client:      sendgrid.NewSendClient(cfg.APIKey),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		logger:      logger,
	}, nil
}

// Send delivers the message, honouring the context deadline.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(s.fromName, s.fromAddress)
	to := sgmail.NewEmail(msg.ToName, msg.To)

	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)
	if msg.ReplyTo != "" {
		message.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("mail: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Debug("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// LogSender records messages instead of delivering them. Used in development
// and whenever outbound mail is disabled.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and reports success.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail disabled, skipping delivery",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
