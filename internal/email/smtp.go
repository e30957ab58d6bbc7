package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
)

// SMTPTransport submits messages directly to an SMTP server using the
// credentials supplied with each call
type SMTPTransport struct {
	AppName            string
	InsecureSkipVerify bool // development only
}

// Send performs a single SMTP submission. Port 465 implies SSL from the
// first byte; on other ports go-mail negotiates STARTTLS opportunistically.
func (t *SMTPTransport) Send(msg Message, creds SMTPCredentials) error {
	m := mail.NewMessage()

	from := msg.From
	if from == "" {
		from = m.FormatAddress(creds.Email, t.AppName)
	}
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	// Prefer multipart/alternative (text + html)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBody("text/html", msg.HTML)
		} else {
			m.AddAlternative("text/html", msg.HTML)
		}
	}

	d := mail.NewDialer(creds.Server, creds.Port, creds.Email, creds.AppPassword)
	d.SSL = creds.Port == 465
	d.TLSConfig = &tls.Config{
		ServerName:         creds.Server,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
