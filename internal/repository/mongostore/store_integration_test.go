//go:build integration

package mongostore_test

// Runs the MongoDB stores against a real mongod via testcontainers.
// Run with: go test -tags integration ./internal/repository/mongostore/... -v

import (
	"context"
	"testing"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"
	"maaztelecom/internal/repository/mongostore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	mgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgC.Terminate(ctx) })

	uri, err := mgC.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)
	client, err := mongostore.Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("maaztelecom_test")
	require.NoError(t, mongostore.EnsureIndexes(ctx, db))
	return db
}

func mongoSale(username, phone string, at time.Time, lines ...model.SaleLineItem) *model.Sale {
	s := &model.Sale{
		ID:                 uuid.NewString(),
		Username:           username,
		PhoneNumber:        phone,
		PaymentMethod:      model.PaymentOnline,
		Discount:           decimal.RequireFromString("12.50"),
		Timestamp:          at,
		InvoiceStatus:      model.InvoicePending,
		NotificationStatus: model.NotificationPending,
	}
	for i, l := range lines {
		l.Position = i + 1
		s.Products = append(s.Products, l)
	}
	return s
}

func TestMongo_ProductStore(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	products := mongostore.NewProductRepository(db)

	now := time.Now().UTC().Truncate(time.Millisecond)
	p := &model.Product{
		ID: uuid.NewString(), Name: "Fast Charger", Price: decimal.RequireFromString("899.99"),
		Warranty: model.Warranty{HasWarranty: true, Months: 6}, CreatedAt: now,
	}
	require.NoError(t, products.Create(ctx, p))
	require.NoError(t, products.Create(ctx, &model.Product{ID: uuid.NewString(), Name: "Cable", Price: decimal.NewFromInt(249), CreatedAt: now.Add(-48 * time.Hour)}))

	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(p.Price))
	assert.Equal(t, p.Warranty, got.Warranty)

	list, total, err := products.List(ctx, repository.ListQuery{Search: "charg", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, p.ID, list[0].ID)

	list, total, err = products.List(ctx, repository.ListQuery{From: now.Add(-time.Hour), To: now.Add(time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, p.ID, list[0].ID)

	require.NoError(t, products.Delete(ctx, p.ID))
	assert.True(t, apierror.Is(products.Delete(ctx, p.ID), apierror.KindNotFound))
	_, err = products.FindByID(ctx, p.ID)
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
}

func TestMongo_SaleLifecycle(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	sales := mongostore.NewSaleRepository(db)

	day := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	dp := decimal.NewFromInt(850)
	s1 := mongoSale("Asha", "9876543210", day,
		model.SaleLineItem{ProductID: "p1", ProductName: "Fast Charger", Price: decimal.NewFromInt(899), DiscountPrice: &dp},
		model.SaleLineItem{ProductName: "Cable", Price: decimal.NewFromInt(249)},
	)
	s2 := mongoSale("Ravi", "9123456780", day.Add(-48*time.Hour),
		model.SaleLineItem{ProductName: "Back Cover", Price: decimal.NewFromInt(199)},
	)
	require.NoError(t, sales.Create(ctx, s1))
	require.NoError(t, sales.Create(ctx, s2))

	got, err := sales.FindByID(ctx, s1.ID)
	require.NoError(t, err)
	require.Len(t, got.Products, 2)
	assert.Equal(t, 1, got.Products[0].Position)
	require.NotNil(t, got.Products[0].DiscountPrice)
	assert.True(t, got.Products[0].DiscountPrice.Equal(dp))
	assert.Nil(t, got.Products[1].DiscountPrice)
	assert.True(t, got.Discount.Equal(decimal.RequireFromString("12.50")))

	list, total, err := sales.List(ctx, repository.ListQuery{Search: "cover", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, s2.ID, list[0].ID)

	list, total, err = sales.List(ctx, repository.ListQuery{From: day.Truncate(24 * time.Hour), To: day.Truncate(24 * time.Hour).Add(24 * time.Hour), Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, s1.ID, list[0].ID)

	url := "http://files.test/invoices/a.pdf"
	require.NoError(t, sales.UpdateInvoice(ctx, s1.ID, repository.InvoiceUpdate{
		Status: model.InvoiceUploaded, URL: &url, IncrementAttempt: true,
	}))
	got, err = sales.FindByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceUploaded, got.InvoiceStatus)
	assert.Equal(t, 1, got.InvoiceAttempts)
	require.NotNil(t, got.InvoiceURL)
	assert.Equal(t, url, *got.InvoiceURL)

	msg := "render failed"
	require.NoError(t, sales.UpdateInvoice(ctx, s2.ID, repository.InvoiceUpdate{
		Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true,
	}))
	retry, err := sales.ListRetryable(ctx, repository.RetryQuery{MaxAttempts: 3, StaleBefore: time.Now().Add(-time.Hour), Limit: 10})
	require.NoError(t, err)
	require.Len(t, retry, 1)
	assert.Equal(t, s2.ID, retry[0].ID)

	assert.True(t, apierror.Is(sales.UpdateInvoice(ctx, "missing", repository.InvoiceUpdate{Status: model.InvoiceFailed}), apierror.KindNotFound))

	require.NoError(t, sales.Delete(ctx, s1.ID))
	_, err = sales.FindByID(ctx, s1.ID)
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
}

func TestMongo_ClaimIsExclusive(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	sales := mongostore.NewSaleRepository(db)

	s := mongoSale("Asha", "9876543210", time.Now().UTC(), model.SaleLineItem{ProductName: "Cable", Price: decimal.NewFromInt(249)})
	require.NoError(t, sales.Create(ctx, s))

	now := time.Now().UTC()
	claim := repository.InvoiceClaim{From: model.InvoicePending, Now: now, Lease: time.Minute}
	ok, err := sales.ClaimInvoice(ctx, s.ID, claim)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = sales.ClaimInvoice(ctx, s.ID, claim)
	require.NoError(t, err)
	assert.False(t, ok, "lease held")

	claim.Now = now.Add(2 * time.Minute)
	ok, err = sales.ClaimInvoice(ctx, s.ID, claim)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease")

	msg := "storage down"
	require.NoError(t, sales.UpdateInvoice(ctx, s.ID, repository.InvoiceUpdate{Status: model.InvoiceFailed, Error: &msg, IncrementAttempt: true}))
	got, err := sales.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got.InvoiceClaimedUntil)

	ok, err = sales.ClaimInvoice(ctx, s.ID, repository.InvoiceClaim{From: model.InvoiceFailed, Now: now, Lease: time.Minute})
	require.NoError(t, err)
	assert.True(t, ok, "failure releases the lease")

	before, err := sales.FindByID(ctx, s.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, sales.Touch(ctx, s.ID))
	after, err := sales.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}
