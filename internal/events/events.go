// Package events defines the sale lifecycle events published to the event
// bus, and the publisher contract services depend on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SaleRecorded       = "SaleRecorded"
	SaleDeleted        = "SaleDeleted"
	InvoiceUploaded    = "InvoiceUploaded"
	InvoiceFailed      = "InvoiceFailed"
	NotificationSent   = "NotificationSent"
	NotificationFailed = "NotificationFailed"
	ProductCreated     = "ProductCreated"
	ProductDeleted     = "ProductDeleted"
)

const producerName = "maaztelecom-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale or product id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payloads ----

type SalePayload struct {
	SaleID        string `json:"sale_id"`
	Username      string `json:"username,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	FinalTotal    string `json:"final_total,omitempty"`
	Lines         int    `json:"lines,omitempty"`
}

type InvoicePayload struct {
	SaleID     string `json:"sale_id"`
	InvoiceURL string `json:"invoice_url,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempt    int    `json:"attempt"`
}

type NotificationPayload struct {
	SaleID  string `json:"sale_id"`
	Error   string `json:"error,omitempty"`
	Attempt int    `json:"attempt"`
}

type ProductPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Price     string `json:"price,omitempty"`
}

// New wraps payload in a versioned envelope.
func New(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("events: decode %s payload: %w", env.EventType, err)
	}
	return t, nil
}

// Publisher delivers envelopes to the event bus. Publishing is best-effort:
// implementations must not block the caller on a slow bus.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Emit builds and publishes an envelope, logging instead of failing: the
// state change it describes has already been committed.
func Emit(ctx context.Context, pub Publisher, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	env, err := New(eventType, correlationID, payload)
	if err == nil {
		err = pub.Publish(ctx, env)
	}
	if err != nil {
		log.Warn().Err(err).Str("event", eventType).Str("id", correlationID).Msg("events: publish failed")
	}
}

// Noop discards every event; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

// Recorder keeps published envelopes in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	r.events = append(r.events, env)
	r.mu.Unlock()
	return nil
}

// Types returns the event types recorded so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}
