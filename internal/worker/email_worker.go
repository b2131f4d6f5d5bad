package worker

// email_worker.go
// Processes email jobs from QueueEmail: mails the invoice link to customers
// who left an address at checkout. Best-effort; failures are logged only.

import (
	"context"
	"encoding/json"
	"fmt"

	"maaztelecom/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	SaleID   string `json:"sale_id"`
	ToEmail  string `json:"to_email"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// InvoiceMailer is satisfied by *infra.Mailer.
type InvoiceMailer interface {
	Configured() bool
	SendInvoice(to, subject, body string, doc *infra.InvoiceDocument) error
}

type EmailWorker struct {
	mailer   InvoiceMailer
	shopName string
}

func NewEmailWorker(mailer InvoiceMailer, shopName string) *EmailWorker {
	return &EmailWorker{mailer: mailer, shopName: shopName}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Str("sale_id", payload.SaleID).Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Configured() {
		log.Debug().Str("sale_id", payload.SaleID).Msg("email_worker: smtp not configured, skipping")
		return nil
	}

	subject := fmt.Sprintf("%s invoice %s", w.shopName, payload.Filename)
	body := fmt.Sprintf("%s\n\nDownload: %s\n", InvoiceMessage(payload.Username), payload.URL)
	if err := w.mailer.SendInvoice(payload.ToEmail, subject, body, nil); err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Str("sale_id", payload.SaleID).Msg("email_worker: invoice mailed")
	return nil
}
