package worker

// retry_scheduler.go
// Periodically re-enqueues sales whose invoice or notification failed (or
// sat pending long enough that the job was probably lost). Failed work backs
// off exponentially per attempt; sales past the attempt limit are left to the
// dead letter queue. Notifications are not retried while the gateway's
// circuit breaker is open.

import (
	"context"
	"time"

	"maaztelecom/internal/infra"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

var timeNow = time.Now

// GatewayState reports the messaging gateway breaker state.
type GatewayState interface {
	BreakerState() infra.CBState
}

type RetrySchedulerConfig struct {
	Sales       repository.SaleRepository
	Enqueuer    Enqueuer
	Gateway     GatewayState
	Pool        *Pool // optional; queue depth is sampled on every tick
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
}

type RetryScheduler struct {
	cfg   RetrySchedulerConfig
	sched *gocron.Scheduler
}

func NewRetryScheduler(cfg RetrySchedulerConfig) *RetryScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	return &RetryScheduler{cfg: cfg}
}

// Start runs Tick every Interval until ctx is cancelled. Ticks never overlap.
func (r *RetryScheduler) Start(ctx context.Context) error {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(r.cfg.Interval).Do(r.Tick, ctx); err != nil {
		return err
	}
	s.StartAsync()
	r.sched = s
	log.Info().Dur("interval", r.cfg.Interval).Msg("retry_scheduler: started")

	go func() {
		<-ctx.Done()
		s.Stop()
		log.Info().Msg("retry_scheduler: shutting down")
	}()
	return nil
}

// Tick runs one retry pass.
func (r *RetryScheduler) Tick(ctx context.Context) {
	if r.cfg.Pool != nil {
		r.cfg.Pool.ReportDepths(ctx)
	}

	now := timeNow()
	sales, err := r.cfg.Sales.ListRetryable(ctx, repository.RetryQuery{
		MaxAttempts: r.cfg.MaxAttempts,
		StaleBefore: now.Add(-r.cfg.Interval),
		Limit:       r.cfg.BatchSize,
	})
	if err != nil {
		log.Error().Err(err).Msg("retry_scheduler: failed to query retryable sales")
		return
	}
	if len(sales) == 0 {
		return
	}
	log.Info().Int("count", len(sales)).Msg("retry_scheduler: processing retryable sales")

	for i := range sales {
		sale := &sales[i]
		switch sale.InvoiceStatus {
		case model.InvoiceFailed, model.InvoicePending:
			r.retryInvoice(ctx, sale, now)
		case model.InvoiceUploaded:
			r.retryNotification(ctx, sale, now)
		}
	}
}

func (r *RetryScheduler) retryInvoice(ctx context.Context, sale *model.Sale, now time.Time) {
	if sale.InvoiceStatus == model.InvoiceFailed {
		if !r.due(sale.UpdatedAt, sale.InvoiceAttempts, now) {
			return
		}
		if err := r.cfg.Sales.UpdateInvoice(ctx, sale.ID, repository.InvoiceUpdate{Status: model.InvoicePending}); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: reset invoice status failed")
			return
		}
	} else if err := r.cfg.Sales.Touch(ctx, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: touch sale failed")
		return
	}
	if err := r.cfg.Enqueuer.EnqueueInvoice(ctx, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: enqueue invoice failed")
		return
	}
	log.Info().Str("sale_id", sale.ID).Int("attempts", sale.InvoiceAttempts).Msg("retry_scheduler: invoice re-enqueued")
}

func (r *RetryScheduler) retryNotification(ctx context.Context, sale *model.Sale, now time.Time) {
	// Check CB state before each call; it may have tripped mid-batch
	if r.cfg.Gateway != nil && r.cfg.Gateway.BreakerState() == infra.CBOpen {
		log.Debug().Str("sale_id", sale.ID).Msg("retry_scheduler: circuit breaker is open, skipping notification")
		return
	}
	if sale.NotificationStatus == model.NotificationFailed {
		if !r.due(sale.UpdatedAt, sale.NotificationAttempts, now) {
			return
		}
		if err := r.cfg.Sales.UpdateNotification(ctx, sale.ID, repository.NotificationUpdate{Status: model.NotificationPending}); err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: reset notification status failed")
			return
		}
	} else if err := r.cfg.Sales.Touch(ctx, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: touch sale failed")
		return
	}
	if err := r.cfg.Enqueuer.EnqueueNotification(ctx, sale.ID); err != nil {
		log.Error().Err(err).Str("sale_id", sale.ID).Msg("retry_scheduler: enqueue notification failed")
		return
	}
	log.Info().Str("sale_id", sale.ID).Int("attempts", sale.NotificationAttempts).Msg("retry_scheduler: notification re-enqueued")
}

func (r *RetryScheduler) due(lastTouched time.Time, attempts int, now time.Time) bool {
	return now.Sub(lastTouched) >= computeRetryBackoff(r.cfg.Interval, attempts)
}
