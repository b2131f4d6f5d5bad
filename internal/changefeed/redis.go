package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const channelPrefix = "changes:"

// RedisFeed fans change events out over Redis Pub/Sub so every API replica
// sees them.
type RedisFeed struct {
	rdb *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{rdb: rdb}
}

func (f *RedisFeed) Notify(ctx context.Context, ev ChangeEvent) error {
	if err := checkTopic(ev.Topic); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.rdb.Publish(ctx, channelPrefix+ev.Topic, data).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if err := checkTopic(topic); err != nil {
		return nil, err
	}
	ps := f.rdb.Subscribe(ctx, channelPrefix+topic)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("changefeed: subscribe %s: %w", topic, err)
	}

	out := make(chan ChangeEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("changefeed: bad message")
					continue
				}
				select {
				case out <- ev:
				case <-done:
					return
				}
			}
		}
	}()

	return &Subscription{
		events: out,
		stop: func() {
			close(done)
			_ = ps.Close()
		},
	}, nil
}
