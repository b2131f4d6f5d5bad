package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/config"
	"maaztelecom/internal/dto"
	"maaztelecom/internal/events"
	"maaztelecom/internal/handler"
	"maaztelecom/internal/metrics"
	"maaztelecom/internal/repository/memstore"
	"maaztelecom/internal/service"
	"maaztelecom/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopEnqueuer struct{ invoices []string }

func (n *nopEnqueuer) EnqueueInvoice(_ context.Context, id string) error {
	n.invoices = append(n.invoices, id)
	return nil
}
func (n *nopEnqueuer) EnqueueNotification(context.Context, string) error          { return nil }
func (n *nopEnqueuer) EnqueueEmail(context.Context, worker.EmailJobPayload) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *nopEnqueuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	feed := changefeed.NewMemory()
	products := memstore.NewProductStore()
	enq := &nopEnqueuer{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	cfg := &config.Config{Env: "test", CORSOrigins: "*", PublicRatePerMinute: 600}
	r := New(cfg, Deps{
		Catalog: service.NewCatalogService(products, feed, events.Noop{}, time.UTC),
		Sales: service.NewSaleService(service.SaleServiceConfig{
			Sales: memstore.NewSaleStore(), Products: products, Enqueuer: enq,
			Feed: feed, Publisher: events.Noop{}, Metrics: m, Location: time.UTC,
		}),
		Metrics:  m,
		Gatherer: reg,
		Health:   map[string]handler.HealthCheck{"store": func(context.Context) error { return nil }},
		Done:     done,
	})
	return r, enq
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createProduct(t *testing.T, r http.Handler, name, price string) dto.ProductResponse {
	t.Helper()
	w := do(r, http.MethodPost, "/v1/products", map[string]any{"name": name, "price": price})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestProducts_CRUD(t *testing.T) {
	r, _ := newTestRouter(t)
	p := createProduct(t, r, "Screen Guard", "149")

	w := do(r, http.MethodGet, "/v1/products?search=screen", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ProductListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/v1/products/"+p.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/v1/products/"+p.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/v1/products/"+p.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/products/not-a-uuid", nil).Code)
}

func TestProducts_BindingErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/v1/products", map[string]any{"name": "", "price": "0"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"fields"`)

	w = do(r, http.MethodGet, "/v1/products?date=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSales_RecordVerifyAndList(t *testing.T) {
	r, enq := newTestRouter(t)
	p := createProduct(t, r, "Charger", "100")

	w := do(r, http.MethodPost, "/v1/sales", map[string]any{
		"username":       "Asha",
		"phone_number":   "12345",
		"payment_method": "Cash",
		"products":       []map[string]any{{"product_id": p.ID, "product_name": "Charger", "price": "100"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":"please enter a valid phone number"}`, w.Body.String())

	w = do(r, http.MethodPost, "/v1/sales", map[string]any{
		"username":       "Asha",
		"phone_number":   "9876543210",
		"payment_method": "Online",
		"discount":       "20",
		"products":       []map[string]any{{"product_id": p.ID, "product_name": "Charger", "price": "100", "discount_price": "90"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sale dto.SaleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sale))
	assert.Equal(t, "70.00", sale.Totals.FinalTotal)
	assert.Equal(t, []string{sale.ID}, enq.invoices)

	w = do(r, http.MethodGet, "/v1/verify/"+sale.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var v dto.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, sale.Totals, v.Totals)
	assert.True(t, v.Verified)

	w = do(r, http.MethodGet, "/v1/sales?search=asha", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.SaleListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	w = do(r, http.MethodPost, "/v1/sales/"+sale.ID+"/notification/retry", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/v1/sales/"+sale.ID, nil).Code)
	w = do(r, http.MethodGet, "/v1/verify/"+sale.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"No sale found with the provided key."}`, w.Body.String())
}

func TestSales_Preview(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/v1/sales/preview", map[string]any{
		"discount": "5",
		"products": []map[string]any{{"product_name": "Cable", "price": "50"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var prev dto.PreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prev))
	assert.Equal(t, "45.00", prev.Totals.FinalTotal)
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"store":"connected"}`, w.Body.String())

	w = do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestStream_UnknownTopic(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/v1/stream/orders", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStream_DeliversChanges(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream/products", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	p := createProduct(t, r, "Earphones", "299")

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		defer close(lines)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if strings.HasPrefix(line, "data:") && strings.Contains(line, p.ID) {
				return
			}
		case <-deadline:
			t.Fatal("change event not received")
		}
	}
}
