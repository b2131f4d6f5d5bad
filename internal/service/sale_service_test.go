package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/events"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"
	"maaztelecom/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	svc      *saleService
	sales    *memstore.SaleStore
	products *memstore.ProductStore
	enqueuer *fakeEnqueuer
	events   *events.Recorder
	cache    *mapCache
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	f := &saleFixture{
		sales:    memstore.NewSaleStore(),
		products: memstore.NewProductStore(),
		enqueuer: &fakeEnqueuer{},
		events:   &events.Recorder{},
		cache:    newMapCache(),
	}
	require.NoError(t, f.products.Create(context.Background(), &model.Product{
		ID: "p1", Name: "Charger", Price: decimal.NewFromInt(100),
		Warranty: model.Warranty{HasWarranty: true, Months: 6},
	}))
	require.NoError(t, f.products.Create(context.Background(), &model.Product{
		ID: "p2", Name: "Cable", Price: decimal.NewFromInt(50),
	}))
	f.svc = NewSaleService(SaleServiceConfig{
		Sales:     f.sales,
		Products:  f.products,
		Enqueuer:  f.enqueuer,
		Feed:      changefeed.NewMemory(),
		Publisher: f.events,
		Cache:     f.cache,
		Location:  time.UTC,
	}).(*saleService)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validRequest() dto.RecordSaleRequest {
	dp := dec("80")
	return dto.RecordSaleRequest{
		Username:      "Asha",
		PhoneNumber:   "9876543210",
		PaymentMethod: "Cash",
		Discount:      dec("10"),
		Products: []dto.SaleLineRequest{
			{ProductID: "p1", ProductName: "Charger", Price: dec("100"), DiscountPrice: &dp},
			{ProductID: "p2", ProductName: "Cable", Price: dec("50")},
		},
	}
}

func TestSaleService_Record(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Record(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, "150.00", resp.Totals.RawSubtotal)
	assert.Equal(t, "130.00", resp.Totals.NetSubtotal)
	assert.Equal(t, "120.00", resp.Totals.FinalTotal)
	assert.Equal(t, "30.00", resp.Totals.TotalDiscount)
	assert.Equal(t, "Charger - 80.00 (Discounted)", resp.Products[0].Label)
	assert.Equal(t, 6, resp.Products[0].WarrantyMonths)
	assert.Equal(t, "pending", resp.InvoiceStatus)

	stored, err := f.sales.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Products, 2)
	assert.Equal(t, []string{resp.ID}, f.enqueuer.invoices)
	assert.Equal(t, []string{events.SaleRecorded}, f.events.Types())
}

func TestSaleService_RecordValidationStopsBeforeStore(t *testing.T) {
	f := newSaleFixture(t)
	req := validRequest()
	req.Products[1].ProductID = "missing"

	_, err := f.svc.Record(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "please select a valid product for item 2", apierror.Message(err))

	_, total, _ := f.sales.List(context.Background(), repository.ListQuery{Limit: 10})
	assert.Zero(t, total)
	assert.Empty(t, f.enqueuer.invoices)
}

func TestSaleService_RecordSurvivesQueueFailure(t *testing.T) {
	f := newSaleFixture(t)
	f.enqueuer.err = errors.New("redis down")

	resp, err := f.svc.Record(context.Background(), validRequest())
	require.NoError(t, err)
	stored, err := f.sales.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoicePending, stored.InvoiceStatus)
}

func TestSaleService_Preview(t *testing.T) {
	f := newSaleFixture(t)
	resp, err := f.svc.Preview(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "120.00", resp.Totals.FinalTotal)
	assert.True(t, resp.HasDiscount)
	assert.Equal(t, "Cable - 50.00", resp.Lines[1].Label)
	assert.False(t, resp.DiscountCapped)

	req := validRequest()
	req.Discount = dec("140")
	resp, err = f.svc.Preview(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "0.00", resp.Totals.FinalTotal)
	assert.Equal(t, "140.00", resp.Totals.Discount)
	assert.Equal(t, "130.00", resp.Totals.AppliedDiscount)
	assert.True(t, resp.DiscountCapped)

	req = validRequest()
	bad := dec("120")
	req.Products[0].DiscountPrice = &bad
	_, err = f.svc.Preview(context.Background(), req)
	assert.True(t, apierror.Is(err, apierror.KindValidation))
}

func TestSaleService_ListByDayAndSearch(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	_, err := f.svc.Record(ctx, validRequest())
	require.NoError(t, err)

	list, err := f.svc.List(ctx, dto.ListFilter{Search: "cable", Date: "2024-05-10", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "120.00", list.Data[0].Totals.FinalTotal)

	list, err = f.svc.List(ctx, dto.ListFilter{Date: "2024-05-09", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list.Data)
}

func TestSaleService_VerifyCachedAndDeleted(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	rec, err := f.svc.Record(ctx, validRequest())
	require.NoError(t, err)

	v, err := f.svc.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, "2024-05-10", v.Date)
	assert.Equal(t, rec.Totals, v.Totals, "same engine as the recording surface")

	_, err = f.svc.Verify(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	require.NoError(t, f.svc.Delete(ctx, rec.ID))
	assert.Equal(t, []string{rec.ID}, f.cache.invalidated)

	_, err = f.svc.Verify(ctx, rec.ID)
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
	assert.Equal(t, "No sale found with the provided key.", apierror.Message(err))
	assert.True(t, apierror.Is(f.svc.Delete(ctx, rec.ID), apierror.KindNotFound))
}

func TestSaleService_RetryInvoice(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	rec, err := f.svc.Record(ctx, validRequest())
	require.NoError(t, err)

	msg := "upload failed"
	require.NoError(t, f.sales.UpdateInvoice(ctx, rec.ID, repository.InvoiceUpdate{
		Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true,
	}))

	resp, err := f.svc.RetryInvoice(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	stored, _ := f.sales.FindByID(ctx, rec.ID)
	assert.Equal(t, model.InvoicePending, stored.InvoiceStatus)
	assert.Equal(t, []string{rec.ID, rec.ID}, f.enqueuer.invoices)

	url := "https://cdn/x.pdf"
	require.NoError(t, f.sales.UpdateInvoice(ctx, rec.ID, repository.InvoiceUpdate{Status: model.InvoiceUploaded, URL: &url}))
	_, err = f.svc.RetryInvoice(ctx, rec.ID)
	assert.True(t, apierror.Is(err, apierror.KindValidation))
}

func TestSaleService_RetryNotification(t *testing.T) {
	f := newSaleFixture(t)
	ctx := context.Background()
	rec, err := f.svc.Record(ctx, validRequest())
	require.NoError(t, err)

	_, err = f.svc.RetryNotification(ctx, rec.ID)
	assert.Equal(t, "invoice has not been uploaded yet", apierror.Message(err))

	url := "https://cdn/x.pdf"
	require.NoError(t, f.sales.UpdateInvoice(ctx, rec.ID, repository.InvoiceUpdate{Status: model.InvoiceUploaded, URL: &url}))
	require.NoError(t, f.sales.UpdateNotification(ctx, rec.ID, repository.NotificationUpdate{Status: model.NotificationSkipped}))

	resp, err := f.svc.RetryNotification(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, []string{rec.ID}, f.enqueuer.notifications)

	f.enqueuer.err = errors.New("redis down")
	_, err = f.svc.RetryNotification(ctx, rec.ID)
	assert.True(t, apierror.Is(err, apierror.KindDispatch))
}
