package changefeed

import (
	"context"
	"sync"
)

// Memory is an in-process Feed for single-replica deployments and tests.
// Slow subscribers drop events rather than block Notify.
type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan ChangeEvent]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[chan ChangeEvent]struct{})}
}

func (m *Memory) Notify(_ context.Context, ev ChangeEvent) error {
	if err := checkTopic(ev.Topic); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, topic string) (*Subscription, error) {
	if err := checkTopic(topic); err != nil {
		return nil, err
	}
	ch := make(chan ChangeEvent, 16)
	m.mu.Lock()
	if m.subs[topic] == nil {
		m.subs[topic] = make(map[chan ChangeEvent]struct{})
	}
	m.subs[topic][ch] = struct{}{}
	m.mu.Unlock()

	return &Subscription{
		events: ch,
		stop: func() {
			m.mu.Lock()
			delete(m.subs[topic], ch)
			close(ch)
			m.mu.Unlock()
		},
	}, nil
}

// Subscribers returns the number of open subscriptions on topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[topic])
}
