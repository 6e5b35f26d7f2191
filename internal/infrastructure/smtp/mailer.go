package smtp

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-accounts-nosql/internal/config"
	"github.com/go-accounts-nosql/internal/domain"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers notification codes by email directly.
type Mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

// Send emails the code for n.Action. net/smtp has no context support, so ctx
// is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := compose(n)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, n.Email, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := m.send(addr, auth, m.from, []string{n.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("send %q email: %w", n.Action, err)
	}
	return nil
}

func compose(n domain.Notification) (subject, body string) {
	switch n.Action {
	case domain.ActionVerifyAccount:
		return "Verify your account", fmt.Sprintf("Your verification code is %s", n.Code)
	case domain.ActionResetPassword:
		return "Reset your password", fmt.Sprintf("Your password reset code is %s", n.Code)
	}
	return n.Action, n.Code
}
