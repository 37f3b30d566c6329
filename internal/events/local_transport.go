package events

import (
	"context"
	"sync"
)

// LocalTransport fans messages out to in-process subscribers. It is used when
// no Redis is configured and by tests. Slow subscribers lose messages.
type LocalTransport struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{subs: make(map[string]map[chan []byte]struct{})}
}

func (t *LocalTransport) Send(_ context.Context, channel string, payload []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (t *LocalTransport) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 64)

	t.mu.Lock()
	if t.subs[channel] == nil {
		t.subs[channel] = make(map[chan []byte]struct{})
	}
	t.subs[channel][ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			t.mu.Lock()
			delete(t.subs[channel], ch)
			if len(t.subs[channel]) == 0 {
				delete(t.subs, channel)
			}
			t.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}
