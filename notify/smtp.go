package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// ErrDeliveryFailed wraps transport-level send failures.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// SMTPConfig defines a public type used by goIdentity APIs.
//
// SMTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends messages through a plain-auth SMTP relay.
type SMTPNotifier struct {
	config SMTPConfig
}

// NewSMTPNotifier describes the newsmtpnotifier operation and its observable behavior.
//
// NewSMTPNotifier may return an error when input validation, dependency calls, or security checks fail.
// NewSMTPNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.New("invalid smtp port")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address required")
	}

	return &SMTPNotifier{config: cfg}, nil
}

// Send delivers the message via SMTP. The context deadline is honored only
// up to the point the dial starts; net/smtp does not support mid-transfer
// cancellation.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrDeliveryFailed)
	}

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	var body strings.Builder
	body.WriteString("From: " + n.config.From + "\r\n")
	body.WriteString("To: " + msg.To + "\r\n")
	body.WriteString("Subject: " + msg.Subject + "\r\n")
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, n.config.From, []string{msg.To}, []byte(body.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}
