package reminder

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// Mail is one outgoing HTML message.
type Mail struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers mail. Failures are reported, never retried.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPConfig configures SMTPMailer. TLS is one of "opportunistic" (default),
// "mandatory", "ssl" or "none".
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Mail) error {
	mm, err := buildMessage(m.cfg.From, msg)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("reminder: smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("reminder: send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	var opts []mail.Option
	switch strings.ToLower(m.cfg.TLS) {
	case "ssl":
		opts = append(opts, mail.WithSSLPort(false))
	case "mandatory":
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(m.cfg.Port))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	return opts
}

func buildMessage(from string, msg Mail) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("reminder: no recipients")
	}
	mm := mail.NewMsg()
	if err := mm.From(from); err != nil {
		return nil, fmt.Errorf("reminder: from %q: %w", from, err)
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, fmt.Errorf("reminder: to: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return mm, nil
}
