package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"maaztelecom/internal/infra"
	"maaztelecom/internal/model"
	"maaztelecom/internal/pricing"

	"github.com/shopspring/decimal"
)

func init() { retryBaseDelay = time.Millisecond }

type fakeRenderer struct{ err error }

func (r fakeRenderer) Render(sale *model.Sale, _ pricing.Totals, _ infra.NameResolver) (*infra.InvoiceDocument, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &infra.InvoiceDocument{Filename: infra.InvoiceFilename(sale), Data: []byte("%PDF-1.3"), Pages: 1}, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	failFor int
	delay   time.Duration
	calls   int
	paths   []string
}

func (s *fakeStorage) Upload(_ context.Context, _ []byte, objectPath string) (string, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failFor {
		return "", errors.New("storage unavailable")
	}
	s.paths = append(s.paths, objectPath)
	return "https://cdn.example/" + objectPath, nil
}

type recordingEnqueuer struct {
	mu            sync.Mutex
	invoices      []string
	notifications []string
	emails        []EmailJobPayload
	err           error
}

func (e *recordingEnqueuer) EnqueueInvoice(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoices = append(e.invoices, id)
	return e.err
}

func (e *recordingEnqueuer) EnqueueNotification(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = append(e.notifications, id)
	return e.err
}

func (e *recordingEnqueuer) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emails = append(e.emails, p)
	return e.err
}

type recordingDLQ struct{ entries []DLQEntry }

func (d *recordingDLQ) Send(_ context.Context, e DLQEntry) { d.entries = append(d.entries, e) }

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	delay time.Duration
	calls []string
}

func (n *fakeNotifier) Send(_ context.Context, phone, message, mediaURL, filename string) error {
	time.Sleep(n.delay)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, phone+"|"+message+"|"+mediaURL+"|"+filename)
	return n.err
}

type fixedGateway infra.CBState

func (g fixedGateway) BreakerState() infra.CBState { return infra.CBState(g) }

func testSale(id string) *model.Sale {
	return &model.Sale{
		ID:                 id,
		Username:           "Asha",
		PhoneNumber:        "9876543210",
		PaymentMethod:      model.PaymentCash,
		Discount:           decimal.NewFromInt(5),
		Timestamp:          time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		InvoiceStatus:      model.InvoicePending,
		NotificationStatus: model.NotificationPending,
		Products: []model.SaleLineItem{
			{Position: 1, ProductID: "p1", ProductName: "Charger", Price: decimal.NewFromInt(100)},
		},
	}
}
