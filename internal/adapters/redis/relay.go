package redisad

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"campingcare/internal/domain"
)

// Relay publishes inbound webhook events on a pub/sub channel. Subscribers
// receive the event envelope with the original body embedded verbatim.
type Relay struct {
	c       *redis.Client
	channel string
}

var _ domain.EventRelay = (*Relay)(nil)

func NewRelay(c *redis.Client, channel string) *Relay {
	return &Relay{c: c, channel: channel}
}

func (r *Relay) Publish(ctx context.Context, e domain.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.c.Publish(ctx, r.channel, b).Err()
}

// Subscribe delivers events until ctx is done. Messages that are not event
// envelopes are skipped.
func (r *Relay) Subscribe(ctx context.Context, fn func(domain.Event)) error {
	sub := r.c.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				continue
			}
			fn(e)
		}
	}
}
