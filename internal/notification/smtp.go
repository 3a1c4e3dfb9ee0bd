package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// MessageIDHeader carries Message.ID on outgoing mails.
const MessageIDHeader = "X-Shopmail-Message-Id"

// SMTPTransport delivers messages via SMTP using the go-mail library.
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport creates a new SMTPTransport with the given configuration.
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	return &SMTPTransport{config: config}
}

// Name returns the transport identifier.
func (t *SMTPTransport) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server. On success every To
// and Bcc recipient counts as delivered.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (SendResult, error) {
	m, err := buildMsg(msg)
	if err != nil {
		return SendResult{}, err
	}

	policy, implicitTLS := tlsSettings(t.config.Encryption)
	opts := []mail.Option{
		mail.WithPort(t.config.Port),
		mail.WithTLSPolicy(policy),
	}
	if implicitTLS {
		opts = append(opts, mail.WithSSL())
	}
	if t.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.config.Username),
			mail.WithPassword(t.config.Password),
		)
	}
	c, err := mail.NewClient(t.config.Host, opts...)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return failedResult(msg, err), err
	}
	return SendResult{Delivered: len(msg.Recipients())}, nil
}

// buildMsg converts msg into a go-mail message.
func buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if len(msg.Bcc) > 0 {
		if err := m.Bcc(msg.Bcc...); err != nil {
			return nil, fmt.Errorf("invalid bcc: %w", err)
		}
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	if msg.ReturnPath != "" {
		if err := m.EnvelopeFrom(msg.ReturnPath); err != nil {
			return nil, fmt.Errorf("invalid return-path: %w", err)
		}
	}
	m.SetGenHeader(MessageIDHeader, msg.ID)
	m.Subject(msg.Subject)

	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	// Rich HTML alternative using the shop-branded wrapper.
	if html, err := buildEmailHTML(msg.From.Name, msg.Subject, msg.Body); err == nil {
		m.AddAlternativeString(mail.TypeTextHTML, html)
	}
	return m, nil
}

// tlsSettings maps the configured encryption to a go-mail TLS policy and
// whether the connection is implicit TLS ("ssl_tls", usually port 465)
// rather than STARTTLS.
func tlsSettings(enc string) (policy mail.TLSPolicy, implicitTLS bool) {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory, true
	case "starttls":
		return mail.TLSOpportunistic, false
	default:
		return mail.NoTLS, false
	}
}
