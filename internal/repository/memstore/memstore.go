// Package memstore is a process-local implementation of the repository
// contracts. It backs STORE_DRIVER=memory for demos and the service and
// worker tests; data is lost on restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/model"
	"maaztelecom/internal/repository"
)

type ProductStore struct {
	mu    sync.RWMutex
	items map[string]model.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{items: make(map[string]model.Product)}
}

var _ repository.ProductRepository = (*ProductStore)(nil)

func (s *ProductStore) Create(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.items[p.ID]; dup {
		return apierror.Persistence("create product", errDuplicate)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.items[p.ID] = *p
	return nil
}

func (s *ProductStore) FindByID(_ context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, apierror.NotFound("product")
	}
	return &p, nil
}

func (s *ProductStore) List(_ context.Context, q repository.ListQuery) ([]model.Product, int64, error) {
	s.mu.RLock()
	var out []model.Product
	for _, p := range s.items {
		if q.Search != "" && !containsFold(p.Name, q.Search) {
			continue
		}
		if !inWindow(p.CreatedAt, q) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	return page(out, q), total, nil
}

func (s *ProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apierror.NotFound("product")
	}
	delete(s.items, id)
	return nil
}

type SaleStore struct {
	mu    sync.RWMutex
	items map[string]model.Sale
	now   func() time.Time
}

func NewSaleStore() *SaleStore {
	return &SaleStore{items: make(map[string]model.Sale), now: time.Now}
}

var _ repository.SaleRepository = (*SaleStore)(nil)

func (s *SaleStore) Create(_ context.Context, sale *model.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.items[sale.ID]; dup {
		return apierror.Persistence("create sale", errDuplicate)
	}
	sale.UpdatedAt = s.now().UTC()
	for i := range sale.Products {
		sale.Products[i].SaleID = sale.ID
	}
	s.items[sale.ID] = cloneSale(*sale)
	return nil
}

func (s *SaleStore) FindByID(_ context.Context, id string) (*model.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.items[id]
	if !ok {
		return nil, apierror.NotFound("sale")
	}
	c := cloneSale(sale)
	return &c, nil
}

func (s *SaleStore) List(_ context.Context, q repository.ListQuery) ([]model.Sale, int64, error) {
	s.mu.RLock()
	var out []model.Sale
	for _, sale := range s.items {
		if q.Search != "" && !saleMatches(sale, q.Search) {
			continue
		}
		if !inWindow(sale.Timestamp, q) {
			continue
		}
		out = append(out, cloneSale(sale))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	total := int64(len(out))
	return page(out, q), total, nil
}

func (s *SaleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apierror.NotFound("sale")
	}
	delete(s.items, id)
	return nil
}

func (s *SaleStore) UpdateInvoice(_ context.Context, id string, u repository.InvoiceUpdate) error {
	return s.update(id, func(sale *model.Sale) {
		sale.InvoiceStatus = u.Status
		if u.URL != nil {
			url := *u.URL
			sale.InvoiceURL = &url
		}
		if u.Error != nil {
			msg := *u.Error
			sale.InvoiceError = &msg
		} else if u.Status == model.InvoiceUploaded {
			sale.InvoiceError = nil
		}
		if u.IncrementAttempt {
			sale.InvoiceAttempts++
		}
		if u.Status != model.InvoicePending {
			sale.InvoiceClaimedUntil = nil
		}
	})
}

func (s *SaleStore) UpdateNotification(_ context.Context, id string, u repository.NotificationUpdate) error {
	return s.update(id, func(sale *model.Sale) {
		sale.NotificationStatus = u.Status
		if u.Error != nil {
			msg := *u.Error
			sale.NotificationError = &msg
		} else if u.Status == model.NotificationSent {
			sale.NotificationError = nil
		}
		if u.IncrementAttempt {
			sale.NotificationAttempts++
		}
		if u.Status != model.NotificationPending {
			sale.NotificationClaimedUntil = nil
		}
	})
}

func (s *SaleStore) ClaimInvoice(_ context.Context, id string, c repository.InvoiceClaim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.items[id]
	if !ok || sale.InvoiceStatus != c.From || leaseHeld(sale.InvoiceClaimedUntil, c.Now) {
		return false, nil
	}
	until := c.Now.Add(c.Lease)
	sale.InvoiceClaimedUntil = &until
	sale.UpdatedAt = s.now().UTC()
	s.items[id] = sale
	return true, nil
}

func (s *SaleStore) ClaimNotification(_ context.Context, id string, c repository.NotificationClaim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.items[id]
	if !ok || sale.NotificationStatus != c.From || leaseHeld(sale.NotificationClaimedUntil, c.Now) {
		return false, nil
	}
	until := c.Now.Add(c.Lease)
	sale.NotificationClaimedUntil = &until
	sale.UpdatedAt = s.now().UTC()
	s.items[id] = sale
	return true, nil
}

func leaseHeld(until *time.Time, now time.Time) bool {
	return until != nil && !until.Before(now)
}

func (s *SaleStore) Touch(_ context.Context, id string) error {
	return s.update(id, func(*model.Sale) {})
}

func (s *SaleStore) update(id string, fn func(*model.Sale)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.items[id]
	if !ok {
		return apierror.NotFound("sale")
	}
	fn(&sale)
	sale.UpdatedAt = s.now().UTC()
	s.items[id] = sale
	return nil
}

func (s *SaleStore) ListRetryable(_ context.Context, q repository.RetryQuery) ([]model.Sale, error) {
	s.mu.RLock()
	var out []model.Sale
	for _, sale := range s.items {
		if retryable(sale, q) {
			out = append(out, cloneSale(sale))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SetClock replaces the clock used for UpdatedAt.
func (s *SaleStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func retryable(s model.Sale, q repository.RetryQuery) bool {
	stale := s.UpdatedAt.Before(q.StaleBefore)
	switch s.InvoiceStatus {
	case model.InvoiceFailed:
		return s.InvoiceAttempts < q.MaxAttempts
	case model.InvoicePending:
		return stale
	case model.InvoiceUploaded:
		switch s.NotificationStatus {
		case model.NotificationFailed:
			return s.NotificationAttempts < q.MaxAttempts
		case model.NotificationPending:
			return stale
		}
	}
	return false
}

func saleMatches(s model.Sale, search string) bool {
	if containsFold(s.Username, search) || strings.Contains(s.PhoneNumber, search) {
		return true
	}
	for _, l := range s.Products {
		if containsFold(l.ProductName, search) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inWindow(t time.Time, q repository.ListQuery) bool {
	if !q.From.IsZero() && t.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !t.Before(q.To) {
		return false
	}
	return true
}

func page[T any](items []T, q repository.ListQuery) []T {
	if q.Offset >= len(items) {
		return []T{}
	}
	items = items[q.Offset:]
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items
}

func cloneSale(s model.Sale) model.Sale {
	s.Products = append([]model.SaleLineItem(nil), s.Products...)
	return s
}
