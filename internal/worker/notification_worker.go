package worker

// notification_worker.go
// Processes notification jobs from QueueNotification: sends the uploaded
// invoice to the customer's WhatsApp number through the messaging gateway.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/events"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"

	"github.com/rs/zerolog/log"
)

// Notifier is the messaging gateway. *infra.WhatsAppClient implements it.
type Notifier interface {
	Send(ctx context.Context, phone, message, mediaURL, filename string) error
}

type NotificationWorkerConfig struct {
	Sales       repository.SaleRepository
	Notifier    Notifier
	DLQ         DeadLetterSink
	Publisher   events.Publisher
	Feed        changefeed.Feed
	Metrics     *metrics.Metrics
	MaxAttempts int
	ClaimLease  time.Duration
}

type NotificationWorker struct {
	cfg NotificationWorkerConfig
}

func NewNotificationWorker(cfg NotificationWorkerConfig) *NotificationWorker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.ClaimLease <= 0 {
		cfg.ClaimLease = defaultClaimLease
	}
	return &NotificationWorker{cfg: cfg}
}

// InvoiceMessage is the text sent alongside the invoice PDF.
func InvoiceMessage(username string) string {
	return fmt.Sprintf("Hello %s, here is your invoice.", username)
}

func (w *NotificationWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload SaleJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.SaleID == "" {
		return fmt.Errorf("notification_worker: invalid payload")
	}

	sale, err := w.cfg.Sales.FindByID(ctx, payload.SaleID)
	if apierror.Is(err, apierror.KindNotFound) {
		log.Warn().Str("sale_id", payload.SaleID).Msg("notification_worker: sale no longer exists, dropping job")
		return nil
	}
	if err != nil {
		return err
	}
	if !sale.NotificationStatus.CanTransition(model.NotificationSent) {
		return nil
	}

	if sale.InvoiceStatus != model.InvoiceUploaded || sale.InvoiceURL == nil || *sale.InvoiceURL == "" {
		log.Info().Str("sale_id", sale.ID).Msg("notification_worker: no invoice url, skipping")
		if err := w.cfg.Sales.UpdateNotification(ctx, sale.ID, repository.NotificationUpdate{
			Status: model.NotificationSkipped,
		}); err != nil {
			return err
		}
		w.cfg.Metrics.Notification(string(model.NotificationSkipped))
		notifySaleChanged(ctx, w.cfg.Feed, sale.ID)
		return nil
	}

	claimed, err := w.cfg.Sales.ClaimNotification(ctx, sale.ID, repository.NotificationClaim{
		From: sale.NotificationStatus, Now: timeNow(), Lease: w.cfg.ClaimLease,
	})
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug().Str("sale_id", sale.ID).Msg("notification_worker: claimed elsewhere")
		return nil
	}

	filename := fileNameOf(*sale.InvoiceURL)
	sendErr := w.cfg.Notifier.Send(ctx, sale.PhoneNumber, InvoiceMessage(sale.Username), *sale.InvoiceURL, filename)
	attempts := sale.NotificationAttempts + 1

	if sendErr != nil {
		msg := sendErr.Error()
		log.Error().Err(sendErr).Str("sale_id", sale.ID).Int("attempt", attempts).Msg("notification_worker: send failed")
		if err := w.cfg.Sales.UpdateNotification(ctx, sale.ID, repository.NotificationUpdate{
			Status:           model.NotificationFailed,
			Error:            &msg,
			IncrementAttempt: true,
		}); err != nil {
			return err
		}
		w.cfg.Metrics.Notification(string(model.NotificationFailed))
		events.Emit(ctx, w.cfg.Publisher, events.NotificationFailed, sale.ID, events.NotificationPayload{
			SaleID: sale.ID, Error: msg, Attempt: attempts,
		})
		notifySaleChanged(ctx, w.cfg.Feed, sale.ID)
		if attempts >= w.cfg.MaxAttempts && w.cfg.DLQ != nil {
			w.cfg.DLQ.Send(ctx, deadLetter(QueueNotification, jobNotification, sale.ID, msg, attempts))
		}
		return apierror.Dispatch("send whatsapp notification", sendErr)
	}

	if err := w.cfg.Sales.UpdateNotification(ctx, sale.ID, repository.NotificationUpdate{
		Status:           model.NotificationSent,
		IncrementAttempt: true,
	}); err != nil {
		return err
	}
	w.cfg.Metrics.Notification(string(model.NotificationSent))
	events.Emit(ctx, w.cfg.Publisher, events.NotificationSent, sale.ID, events.NotificationPayload{
		SaleID: sale.ID, Attempt: attempts,
	})
	notifySaleChanged(ctx, w.cfg.Feed, sale.ID)
	log.Info().Str("sale_id", sale.ID).Msg("notification_worker: invoice sent")
	return nil
}

// fileNameOf returns the last path segment of an invoice URL.
func fileNameOf(u string) string {
	return u[strings.LastIndexByte(u, '/')+1:]
}
