package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"leaguecoord/internal/config"
)

// MemoryConfig holds configuration for the in-memory bus.
type MemoryConfig struct {
	BufferSize int // per-subscription queue size (default: 1024)
}

// LoadMemoryConfigFromEnv loads bus configuration from environment variables.
func LoadMemoryConfigFromEnv() MemoryConfig {
	cfg := MemoryConfig{
		BufferSize: config.GetIntEnv("BUS_BUFFER_SIZE", 1024),
	}
	return cfg.withDefaults()
}

func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	return c
}

// MetricsRecorder is an optional interface for recording bus metrics.
type MetricsRecorder interface {
	RecordBusPublished(ctx context.Context, topic string)
	RecordBusDropped(ctx context.Context, topic string)
}

// MemoryBus is an in-process Bus. Each subscription owns a bounded queue
// drained by a dedicated goroutine, so per-topic publish order is preserved
// per subscriber and a slow handler only stalls its own queue.
type MemoryBus struct {
	config  MemoryConfig
	logger  *slog.Logger
	metrics MetricsRecorder

	mu   sync.RWMutex
	subs map[Topic][]*Subscription

	published atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Subscription is a handle to one topic registration. The subscriber owns
// it and cancels it on teardown.
type Subscription struct {
	topic   Topic
	handler Handler
	queue   chan Event
	stop    chan struct{}
	once    sync.Once
	bus     *MemoryBus
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Cancel removes the subscription and stops its delivery goroutine after
// draining queued events. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.stop)
	})
}

// NewMemory creates a new in-memory bus.
func NewMemory(cfg MemoryConfig, metrics MetricsRecorder) *MemoryBus {
	cfg = cfg.withDefaults()
	return &MemoryBus{
		config:  cfg,
		logger:  slog.With("component", "eventbus"),
		metrics: metrics,
		subs:    make(map[Topic][]*Subscription),
	}
}

// Subscribe registers a handler for a topic.
func (b *MemoryBus) Subscribe(topic Topic, h Handler) (*Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &Subscription{
		topic:   topic,
		handler: h,
		queue:   make(chan Event, b.config.BufferSize),
		stop:    make(chan struct{}),
		bus:     b,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.deliverLoop(sub)
	return sub, nil
}

// Publish queues an event for all subscribers of its topic.
func (b *MemoryBus) Publish(ev Event) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.published.Add(1)
	if b.metrics != nil {
		b.metrics.RecordBusPublished(context.Background(), string(ev.Topic))
	}

	b.mu.RLock()
	subs := b.subs[ev.Topic]
	b.mu.RUnlock()

	var err error
	for _, sub := range subs {
		select {
		case sub.queue <- ev:
		default:
			b.dropped.Add(1)
			if b.metrics != nil {
				b.metrics.RecordBusDropped(context.Background(), string(ev.Topic))
			}
			b.logger.Warn("Event dropped, subscriber queue full", "topic", ev.Topic, "kind", ev.Kind)
			err = ErrBufferFull
		}
	}
	return err
}

// Stats returns current bus statistics.
func (b *MemoryBus) Stats() Stats {
	b.mu.RLock()
	count := 0
	for _, subs := range b.subs {
		count += len(subs)
	}
	b.mu.RUnlock()

	return Stats{
		Published:     b.published.Load(),
		Delivered:     b.delivered.Load(),
		Dropped:       b.dropped.Load(),
		Subscriptions: count,
	}
}

// Ready reports whether the bus accepts events.
func (b *MemoryBus) Ready(ctx context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close cancels all subscriptions and waits for their queues to drain.
func (b *MemoryBus) Close(ctx context.Context) error {
	if b.closed.Swap(true) {
		return nil // already closed
	}

	b.mu.RLock()
	var all []*Subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.mu.RUnlock()

	for _, sub := range all {
		sub.Cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus closed",
			"published", b.published.Load(),
			"delivered", b.delivered.Load(),
			"dropped", b.dropped.Load(),
		)
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus close timed out")
		return ctx.Err()
	}
}

// deliverLoop drains one subscription's queue.
func (b *MemoryBus) deliverLoop(sub *Subscription) {
	defer b.wg.Done()

	for {
		select {
		case <-sub.stop:
			// Drain remaining events before exiting
			for {
				select {
				case ev := <-sub.queue:
					b.deliver(sub, ev)
				default:
					return
				}
			}
		case ev := <-sub.queue:
			b.deliver(sub, ev)
		}
	}
}

// deliver invokes the handler, isolating the bus from handler panics.
func (b *MemoryBus) deliver(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panic", "topic", sub.topic, "kind", ev.Kind, "panic", r)
		}
	}()

	sub.handler(context.Background(), ev)
	b.delivered.Add(1)
}

// remove detaches a subscription from the topic index.
func (b *MemoryBus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.topic]) == 0 {
		delete(b.subs, sub.topic)
	}
}

// Verify MemoryBus implements Bus
var _ Bus = (*MemoryBus)(nil)
