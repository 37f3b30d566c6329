package events

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes to Redis pub/sub channels named prefix+channel.
type RedisTransport struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTransport(rdb *redis.Client, prefix string) *RedisTransport {
	return &RedisTransport{rdb: rdb, prefix: prefix}
}

func (t *RedisTransport) Send(ctx context.Context, channel string, payload []byte) error {
	return t.rdb.Publish(ctx, t.prefix+channel, payload).Err()
}

// Subscribe streams payloads published to channel until ctx ends or the
// returned cancel func is called.
func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := t.rdb.Subscribe(ctx, t.prefix+channel)
	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
	}
	return out, cancel, nil
}
