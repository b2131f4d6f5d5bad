package service

import (
	"context"
	"sync"

	"maaztelecom/internal/dto"
	"maaztelecom/internal/worker"
)

type fakeEnqueuer struct {
	mu            sync.Mutex
	invoices      []string
	notifications []string
	err           error
}

func (e *fakeEnqueuer) EnqueueInvoice(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoices = append(e.invoices, id)
	return e.err
}

func (e *fakeEnqueuer) EnqueueNotification(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifications = append(e.notifications, id)
	return e.err
}

func (e *fakeEnqueuer) EnqueueEmail(context.Context, worker.EmailJobPayload) error { return e.err }

type mapCache struct {
	items       map[string]*dto.VerifyResponse
	hits        int
	invalidated []string
}

func newMapCache() *mapCache { return &mapCache{items: map[string]*dto.VerifyResponse{}} }

func (c *mapCache) Get(_ context.Context, id string) (*dto.VerifyResponse, bool) {
	v, ok := c.items[id]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(_ context.Context, id string, v *dto.VerifyResponse) { c.items[id] = v }

func (c *mapCache) Invalidate(_ context.Context, id string) {
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
}
