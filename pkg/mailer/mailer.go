package mailer

import (
	"context"

	"github.com/wneessen/go-mail"

	"github.com/univault/univault/modules/core/domain/directory"
	"github.com/univault/univault/pkg/configuration"
)

// SMTPMailer delivers alert mail through the SMTP relay named in the
// environment. One message per dispatch, all recipients on it.
type SMTPMailer struct {
	opts configuration.MailOptions
}

// NewSMTPMailer returns nil when no relay is configured, which callers treat
// as mail being disabled.
func NewSMTPMailer(opts configuration.MailOptions) *SMTPMailer {
	if !opts.Configured() {
		return nil
	}
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, to []directory.Recipient, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.opts.FromName, m.opts.From); err != nil {
		return err
	}
	for _, recipient := range to {
		if err := msg.AddToFormat(recipient.DisplayName, recipient.Email); err != nil {
			return err
		}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	clientOpts := []mail.Option{
		mail.WithPort(m.opts.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.opts.Username),
		mail.WithPassword(m.opts.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	client, err := mail.NewClient(m.opts.Host, clientOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.DialAndSendWithContext(ctx, msg)
}
