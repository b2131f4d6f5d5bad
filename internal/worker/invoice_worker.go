package worker

// invoice_worker.go
// Processes invoice jobs from QueueInvoice: prices the stored sale, renders
// the PDF, uploads it and records the outcome on the sale. A successful
// upload enqueues the WhatsApp notification and, when the customer left an
// address, the email receipt.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/events"
	"maaztelecom/internal/infra"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"
	"maaztelecom/internal/repository"

	"github.com/rs/zerolog/log"
)

// Renderer turns a priced sale into a PDF document.
type Renderer interface {
	Render(sale *model.Sale, totals pricing.Totals, names infra.NameResolver) (*infra.InvoiceDocument, error)
}

// InvoiceWorkerConfig holds all dependencies for the invoice worker.
type InvoiceWorkerConfig struct {
	Sales       repository.SaleRepository
	Products    repository.ProductRepository
	Renderer    Renderer
	Storage     infra.DocumentStorage
	Enqueuer    Enqueuer
	DLQ         DeadLetterSink
	Publisher   events.Publisher
	Feed        changefeed.Feed
	Metrics     *metrics.Metrics
	MaxAttempts int
	ClaimLease  time.Duration
}

type InvoiceWorker struct {
	cfg InvoiceWorkerConfig
}

func NewInvoiceWorker(cfg InvoiceWorkerConfig) *InvoiceWorker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = defaultClaimLease
	}
	return &InvoiceWorker{cfg: cfg}
}

// Process handles a single invoice job:
//  1. Load the sale; a sale deleted in the meantime drops the job
//  2. Claim it, so duplicate jobs for the same sale do nothing
//  3. Price it with the same engine the sell form used
//  4. Render the PDF and upload it (3 tries with backoff)
//  5. Record uploaded/failed, publish the event, enqueue follow-ups
func (w *InvoiceWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload SaleJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SaleID == "" {
		return fmt.Errorf("invoice_worker: invalid payload")
	}

	sale, err := w.cfg.Sales.FindByID(ctx, payload.SaleID)
	if apierror.Is(err, apierror.KindNotFound) {
		log.Warn().Str("sale_id", payload.SaleID).Msg("invoice_worker: sale no longer exists, dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	if !sale.InvoiceStatus.CanTransition(model.InvoiceUploaded) {
		log.Debug().Str("sale_id", sale.ID).Str("status", string(sale.InvoiceStatus)).Msg("invoice_worker: already uploaded")
		return nil
	}
	claimed, err := w.cfg.Sales.ClaimInvoice(ctx, sale.ID, repository.InvoiceClaim{
		From: sale.InvoiceStatus, Now: timeNow(), Lease: w.cfg.ClaimLease,
	})
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug().Str("sale_id", sale.ID).Msg("invoice_worker: claimed elsewhere")
		return nil
	}

	url, doc, err := w.produce(ctx, sale)
	if err != nil {
		return w.fail(ctx, sale, err)
	}

	if err := w.cfg.Sales.UpdateInvoice(ctx, sale.ID, repository.InvoiceUpdate{
		Status:           model.InvoiceUploaded,
		URL:              &url,
		IncrementAttempt: true,
	}); err != nil {
		return err
	}
	w.cfg.Metrics.Invoice(string(model.InvoiceUploaded))
	events.Emit(ctx, w.cfg.Publisher, events.InvoiceUploaded, sale.ID, events.InvoicePayload{
		SaleID: sale.ID, InvoiceURL: url, Attempt: sale.InvoiceAttempts + 1,
	})
	notifySaleChanged(ctx, w.cfg.Feed, sale.ID)
	log.Info().Str("sale_id", sale.ID).Str("url", url).Msg("invoice_worker: invoice uploaded")

	if err := w.cfg.Enqueuer.EnqueueNotification(ctx, sale.ID); err != nil {
		// The retry scheduler picks up stale pending notifications.
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("invoice_worker: enqueue notification failed")
	}
	if sale.CustomerEmail != nil && *sale.CustomerEmail != "" {
		if err := w.cfg.Enqueuer.EnqueueEmail(ctx, EmailJobPayload{
			SaleID:   sale.ID,
			ToEmail:  *sale.CustomerEmail,
			Username: sale.Username,
			URL:      url,
			Filename: doc.Filename,
		}); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID).Msg("invoice_worker: enqueue email failed")
		}
	}
	return nil
}

func (w *InvoiceWorker) produce(ctx context.Context, sale *model.Sale) (string, *infra.InvoiceDocument, error) {
	totals, err := pricing.ComputeSale(sale)
	if err != nil {
		return "", nil, apierror.Render(err)
	}
	doc, err := w.cfg.Renderer.Render(sale, totals, w.resolver(ctx))
	if err != nil {
		return "", nil, apierror.Render(err)
	}

	var url string
	err = withRetry(ctx, 3, func(attempt int) error {
		u, err := w.cfg.Storage.Upload(ctx, doc.Data, "invoices/"+doc.Filename)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("sale_id", sale.ID).
				Msg("invoice_worker: upload attempt failed")
			return err
		}
		url = u
		return nil
	})
	if err != nil {
		return "", nil, apierror.Dispatch("upload invoice", err)
	}
	return url, doc, nil
}

// resolver looks up names for lines stored without a name snapshot.
func (w *InvoiceWorker) resolver(ctx context.Context) infra.NameResolver {
	return func(productID string) (string, bool) {
		if w.cfg.Products == nil || productID == "" {
			return "", false
		}
		p, err := w.cfg.Products.FindByID(ctx, productID)
		if err != nil {
			return "", false
		}
		return p.Name, true
	}
}

func (w *InvoiceWorker) fail(ctx context.Context, sale *model.Sale, cause error) error {
	msg := cause.Error()
	attempts := sale.InvoiceAttempts + 1
	log.Error().Err(cause).Str("sale_id", sale.ID).Int("attempt", attempts).Msg("invoice_worker: invoice failed")

	if err := w.cfg.Sales.UpdateInvoice(ctx, sale.ID, repository.InvoiceUpdate{
		Status:           model.InvoiceFailed,
		Error:            &msg,
		IncrementAttempt: true,
	}); err != nil {
		return err
	}
	w.cfg.Metrics.Invoice(string(model.InvoiceFailed))
	events.Emit(ctx, w.cfg.Publisher, events.InvoiceFailed, sale.ID, events.InvoicePayload{
		SaleID: sale.ID, Error: msg, Attempt: attempts,
	})
	notifySaleChanged(ctx, w.cfg.Feed, sale.ID)

	if attempts >= w.cfg.MaxAttempts && w.cfg.DLQ != nil {
		w.cfg.DLQ.Send(ctx, deadLetter(QueueInvoice, jobInvoice, sale.ID, msg, attempts))
	}
	return cause
}

func notifySaleChanged(ctx context.Context, feed changefeed.Feed, saleID string) {
	if feed == nil {
		return
	}
	if err := feed.Notify(ctx, changefeed.ChangeEvent{
		Topic:  changefeed.TopicSales,
		Action: changefeed.ActionUpdated,
		ID:     saleID,
		At:     timeNow().UTC(),
	}); err != nil {
		log.Debug().Err(err).Str("sale_id", saleID).Msg("worker: change notify failed")
	}
}
