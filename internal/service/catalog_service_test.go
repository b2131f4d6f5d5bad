package service

import (
	"context"
	"testing"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/events"
	"maaztelecom/internal/repository/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*catalogService, *changefeed.Memory, *events.Recorder) {
	t.Helper()
	feed := changefeed.NewMemory()
	rec := &events.Recorder{}
	svc := NewCatalogService(memstore.NewProductStore(), feed, rec, time.UTC).(*catalogService)
	return svc, feed, rec
}

func TestCatalogService_CreateValidation(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	cases := []struct {
		req  dto.CreateProductRequest
		want string
	}{
		{dto.CreateProductRequest{Name: "  ", Price: decimal.NewFromInt(10)}, "product name is required"},
		{dto.CreateProductRequest{Name: "Case", Price: decimal.Zero}, "price must be greater than zero"},
		{dto.CreateProductRequest{Name: "Case", Price: decimal.NewFromInt(10), HasWarranty: true}, "warranty months must be greater than zero"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.req)
		require.Error(t, err)
		assert.True(t, apierror.Is(err, apierror.KindValidation))
		assert.Equal(t, tc.want, apierror.Message(err))
	}
}

func TestCatalogService_CreateListDelete(t *testing.T) {
	svc, feed, rec := newCatalog(t)
	ctx := context.Background()
	day := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }

	sub, err := svc.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	created, err := svc.Create(ctx, dto.CreateProductRequest{
		Name: " Fast Charger ", Price: decimal.RequireFromString("499.5"), HasWarranty: true, WarrantyMonths: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fast Charger", created.Name)
	assert.Equal(t, "499.50", created.Price)
	assert.Equal(t, 6, created.WarrantyMonths)

	ev := <-sub.Events()
	assert.Equal(t, changefeed.ActionCreated, ev.Action)
	assert.Equal(t, created.ID, ev.ID)

	list, err := svc.List(ctx, dto.ListFilter{Search: "charger", Date: "2024-05-10", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, 1, list.TotalPages)

	list, err = svc.List(ctx, dto.ListFilter{Date: "2024-05-11"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, list.Total)
	assert.Equal(t, 20, list.Limit)

	_, err = svc.List(ctx, dto.ListFilter{Date: "10/05/2024"})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, apierror.Is(err, apierror.KindNotFound))
	assert.Equal(t, []string{events.ProductCreated, events.ProductDeleted}, rec.Types())
	assert.Equal(t, 1, feed.Subscribers(changefeed.TopicProducts))
}
