// Package changefeed tells open dashboard views that the catalog or the sale
// list changed. Consumers hold a Subscription for as long as the view is open
// and must Close it when the view goes away.
package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	TopicProducts = "products"
	TopicSales    = "sales"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// ChangeEvent identifies what changed; consumers re-read the record.
type ChangeEvent struct {
	Topic  string    `json:"topic"`
	Action Action    `json:"action"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

type Feed interface {
	Notify(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

// ValidTopic reports whether topic names a known change stream.
func ValidTopic(topic string) bool {
	return topic == TopicProducts || topic == TopicSales
}

func checkTopic(topic string) error {
	if !ValidTopic(topic) {
		return fmt.Errorf("changefeed: unknown topic %q", topic)
	}
	return nil
}

// Subscription is a live handle on one topic. Events is closed after Close
// or when the underlying stream ends.
type Subscription struct {
	events <-chan ChangeEvent
	once   sync.Once
	stop   func()
}

func (s *Subscription) Events() <-chan ChangeEvent { return s.events }

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.stop)
}
