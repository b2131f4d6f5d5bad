package worker

import (
	"context"
	"testing"
	"time"

	"maaztelecom/internal/infra"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"
	"maaztelecom/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), computeRetryBackoff(time.Minute, 0))
	assert.Equal(t, time.Minute, computeRetryBackoff(time.Minute, 1))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(time.Minute, 2))
	assert.Equal(t, 8*time.Minute, computeRetryBackoff(time.Minute, 4))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(time.Minute, 20))
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(int) error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = withRetry(context.Background(), 2, func(int) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}

func schedulerFixture(t *testing.T, gateway infra.CBState) (*memstore.SaleStore, *recordingEnqueuer, *RetryScheduler, time.Time) {
	t.Helper()
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store := memstore.NewSaleStore()
	store.SetClock(func() time.Time { return base })
	enq := &recordingEnqueuer{}
	s := NewRetryScheduler(RetrySchedulerConfig{
		Sales:       store,
		Enqueuer:    enq,
		Gateway:     fixedGateway(gateway),
		Interval:    time.Minute,
		MaxAttempts: 3,
		BatchSize:   10,
	})
	return store, enq, s, base
}

func TestRetryScheduler_ReenqueuesFailedAndStale(t *testing.T) {
	store, enq, s, base := schedulerFixture(t, infra.CBClosed)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSale("stale")))
	require.NoError(t, store.Create(ctx, testSale("failed")))
	msg := "upload failed"
	require.NoError(t, store.UpdateInvoice(ctx, "failed", repository.InvoiceUpdate{
		Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true,
	}))
	require.NoError(t, store.Create(ctx, testSale("notify")))
	url := "https://cdn.example/x.pdf"
	require.NoError(t, store.UpdateInvoice(ctx, "notify", repository.InvoiceUpdate{Status: model.InvoiceUploaded, URL: &url}))
	require.NoError(t, store.UpdateNotification(ctx, "notify", repository.NotificationUpdate{
		Status: model.NotificationFailed, Error: &msg, IncrementAttempt: true,
	}))

	timeNow = func() time.Time { return base.Add(2 * time.Minute) }
	defer func() { timeNow = time.Now }()

	s.Tick(ctx)

	assert.ElementsMatch(t, []string{"stale", "failed"}, enq.invoices)
	assert.Equal(t, []string{"notify"}, enq.notifications)

	got, _ := store.FindByID(ctx, "failed")
	assert.Equal(t, model.InvoicePending, got.InvoiceStatus)
	assert.Equal(t, 1, got.InvoiceAttempts, "reset does not count as an attempt")
}

func TestRetryScheduler_RespectsBackoffAndBreaker(t *testing.T) {
	store, enq, s, base := schedulerFixture(t, infra.CBOpen)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testSale("failed")))
	msg := "x"
	for i := 0; i < 2; i++ {
		require.NoError(t, store.UpdateInvoice(ctx, "failed", repository.InvoiceUpdate{
			Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true,
		}))
	}
	require.NoError(t, store.Create(ctx, testSale("notify")))
	url := "https://cdn.example/x.pdf"
	require.NoError(t, store.UpdateInvoice(ctx, "notify", repository.InvoiceUpdate{Status: model.InvoiceUploaded, URL: &url}))
	require.NoError(t, store.UpdateNotification(ctx, "notify", repository.NotificationUpdate{
		Status: model.NotificationFailed, Error: &msg, IncrementAttempt: true,
	}))

	// Two failures need two minutes of backoff; only 90s have passed.
	timeNow = func() time.Time { return base.Add(90 * time.Second) }
	defer func() { timeNow = time.Now }()

	s.Tick(ctx)
	assert.Empty(t, enq.invoices)
	assert.Empty(t, enq.notifications, "breaker open")
}

func TestRetryScheduler_IgnoresExhausted(t *testing.T) {
	store, enq, s, base := schedulerFixture(t, infra.CBClosed)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testSale("dead")))
	msg := "x"
	for i := 0; i < 3; i++ {
		require.NoError(t, store.UpdateInvoice(ctx, "dead", repository.InvoiceUpdate{
			Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true,
		}))
	}
	timeNow = func() time.Time { return base.Add(time.Hour) }
	defer func() { timeNow = time.Now }()

	s.Tick(ctx)
	assert.Empty(t, enq.invoices)
}

func TestRetryScheduler_StalePendingQueuedOncePerInterval(t *testing.T) {
	store, enq, s, base := schedulerFixture(t, infra.CBClosed)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testSale("stale")))
	require.NoError(t, store.Create(ctx, testSale("notify")))
	url := "https://cdn.example/x.pdf"
	require.NoError(t, store.UpdateInvoice(ctx, "notify", repository.InvoiceUpdate{Status: model.InvoiceUploaded, URL: &url}))

	now := base
	store.SetClock(func() time.Time { return now })
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	now = base.Add(2 * time.Minute)
	s.Tick(ctx)
	now = base.Add(2*time.Minute + 30*time.Second)
	s.Tick(ctx)

	assert.Equal(t, []string{"stale"}, enq.invoices)
	assert.Equal(t, []string{"notify"}, enq.notifications)

	got, _ := store.FindByID(ctx, "notify")
	assert.True(t, got.UpdatedAt.Equal(base.Add(2*time.Minute)), "re-enqueue touches the sale")

	// A full interval after the touch, the still-pending sale is queued again.
	now = base.Add(3*time.Minute + time.Second)
	s.Tick(ctx)
	assert.Equal(t, []string{"stale", "stale"}, enq.invoices)
	assert.Equal(t, []string{"notify", "notify"}, enq.notifications)
}
