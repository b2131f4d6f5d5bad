package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"maaztelecom/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends invoice receipts over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

func (m *Mailer) Configured() bool { return m.host != "" && m.from != "" }

// SendInvoice mails the invoice link, attaching the PDF when doc is non-nil.
func (m *Mailer) SendInvoice(to, subject, body string, doc *InvoiceDocument) error {
	if !m.Configured() {
		return fmt.Errorf("mailer: smtp not configured")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if doc != nil {
		if _, err := e.Attach(bytes.NewReader(doc.Data), doc.Filename, "application/pdf"); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
