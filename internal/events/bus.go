package events

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"taskflow/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transport moves one encoded message to a channel.
type Transport interface {
	Send(ctx context.Context, channel string, payload []byte) error
}

func BoardChannel(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}

func UserChannel(email string) string {
	return "user:" + email
}

type Options struct {
	// Workers is the number of delivery goroutines. Defaults to 4.
	Workers int

	// Buffer is the queue length per worker. Defaults to 256.
	Buffer int

	// SendTimeout bounds a single delivery. Defaults to 5s.
	SendTimeout time.Duration

	// HandoffTimeout is how long Publish waits on a full queue before dropping.
	HandoffTimeout time.Duration
}

// Stats counts messages since the bus started.
type Stats struct {
	Delivered int64
	Failed    int64
	Dropped   int64
}

type message struct {
	channel string
	kind    string
	payload []byte
}

type Bus struct {
	transport      Transport
	shards         []chan message
	sendTimeout    time.Duration
	handoffTimeout time.Duration
	log            logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewBus(transport Transport, opts Options, log logrus.FieldLogger) *Bus {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}

	b := &Bus{
		transport:      transport,
		shards:         make([]chan message, opts.Workers),
		sendTimeout:    opts.SendTimeout,
		handoffTimeout: opts.HandoffTimeout,
		log:            log.WithField("component", "event_bus"),
	}
	for i := range b.shards {
		b.shards[i] = make(chan message, opts.Buffer)
		b.wg.Add(1)
		go b.worker(i, b.shards[i])
	}
	b.log.Infof("event bus started, workers: %d, buffer: %d, send timeout: %v", opts.Workers, opts.Buffer, opts.SendTimeout)
	return b
}

// PublishBoardEvent queues ev for the board's broadcast channel and returns immediately.
func (b *Bus) PublishBoardEvent(boardID uuid.UUID, ev model.ChangeEvent) {
	b.publish(BoardChannel(boardID), string(ev.Type), ev)
}

// PublishUserNotification queues n for the user's private channel and returns immediately.
func (b *Bus) PublishUserNotification(email string, n model.Notification) {
	b.publish(UserChannel(email), string(n.Kind), n)
}

func (b *Bus) Stats() Stats {
	return Stats{
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Close stops accepting messages, drains the queues and waits for the workers.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.shards {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.log.Info("event bus stopped")
}

func (b *Bus) publish(channel, kind string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.failed.Add(1)
		b.log.WithError(err).WithField("channel", channel).Error("encode event failed")
		return
	}
	msg := message{channel: channel, kind: kind, payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		b.log.WithFields(logrus.Fields{"channel": channel, "event": kind}).Warn("event bus closed, dropping event")
		return
	}

	ch := b.shards[b.shardFor(channel)]
	select {
	case ch <- msg:
		return
	default:
	}

	if b.handoffTimeout > 0 {
		timer := time.NewTimer(b.handoffTimeout)
		defer timer.Stop()
		select {
		case ch <- msg:
			return
		case <-timer.C:
		}
	}

	b.dropped.Add(1)
	b.log.WithFields(logrus.Fields{"channel": channel, "event": kind}).Error("event queue full, dropping event")
}

func (b *Bus) shardFor(channel string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(channel))
	return int(h.Sum32() % uint32(len(b.shards)))
}

func (b *Bus) worker(id int, ch <-chan message) {
	defer b.wg.Done()
	for msg := range ch {
		b.deliver(id, msg)
	}
}

func (b *Bus) deliver(worker int, msg message) {
	fields := logrus.Fields{"channel": msg.channel, "event": msg.kind, "worker": worker}
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.log.WithFields(fields).Errorf("transport panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	if err := b.transport.Send(ctx, msg.channel, msg.payload); err != nil {
		b.failed.Add(1)
		b.log.WithFields(fields).WithError(err).Error("event delivery failed")
		return
	}
	b.delivered.Add(1)
	b.log.WithFields(fields).Debug("event delivered")
}

// Subscriber streams the raw payloads published to one channel.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

var (
	_ Subscriber = (*RedisTransport)(nil)
	_ Subscriber = (*LocalTransport)(nil)
	_ Transport  = (*RedisTransport)(nil)
	_ Transport  = (*LocalTransport)(nil)
)
