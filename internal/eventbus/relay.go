package eventbus

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"leaguecoord/internal/config"
	"leaguecoord/pkg/backoff"
	"leaguecoord/pkg/circuitbreaker"
	"leaguecoord/pkg/cloudevent"
)

// Hardcoded delivery defaults - these rarely need tuning.
const (
	defaultMaxRetries       = 3
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
	defaultMaxRequeues      = 10
)

// Destination is a peer node's event ingress.
type Destination struct {
	URL        string
	SigningKey string
}

// RouteFunc maps an event to a peer destination. Returning false means the
// event has no remote recipient and is skipped.
type RouteFunc func(ev Event) (Destination, bool)

// RelayConfig holds configuration for the HTTP relay.
type RelayConfig struct {
	Source      string        // CloudEvent source identifier (this node)
	BufferSize  int           // pending events buffer (default: 4096)
	Workers     int           // concurrent delivery goroutines (default: 4)
	HTTPTimeout time.Duration // per-request timeout (default: 10s)
}

// LoadRelayConfigFromEnv loads relay configuration from environment variables.
func LoadRelayConfigFromEnv() RelayConfig {
	cfg := RelayConfig{
		Source:      config.GetEnv("NODE_ID", "coordinator-0"),
		BufferSize:  config.GetIntEnv("RELAY_BUFFER_SIZE", 4096),
		Workers:     config.GetIntEnv("RELAY_WORKERS", 4),
		HTTPTimeout: config.GetDurationEnv("RELAY_HTTP_TIMEOUT", 10*time.Second),
	}
	return cfg.withDefaults()
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.Source == "" {
		c.Source = "coordinator-0"
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}

// RelayMetricsRecorder is an optional interface for recording relay metrics.
type RelayMetricsRecorder interface {
	RecordRelayDelivered(ctx context.Context, durationSeconds float64)
	RecordRelayFailed(ctx context.Context)
	RecordRelayDropped(ctx context.Context)
	RecordRelayRequeued(ctx context.Context)
	RecordRelayQueueSize(ctx context.Context, size int64)
}

// relayItem carries an event through the queue with its requeue count.
type relayItem struct {
	event    Event
	requeues int
}

// Relay forwards local bus events to peer nodes as signed CloudEvents.
// Events are queued in a bounded channel and delivered by a worker pool
// with retry and a per-peer circuit breaker. If the buffer is full, events
// are dropped (logged + metric incremented); at-least-once delivery is only
// as strong as the receiving ingress.
type Relay struct {
	queue    chan relayItem
	sender   *cloudevent.Sender
	breakers *circuitbreaker.Registry
	route    RouteFunc
	config   RelayConfig
	logger   *slog.Logger
	metrics  RelayMetricsRecorder

	// Internal counters (for Stats())
	queued       atomic.Int64
	delivered    atomic.Int64
	failed       atomic.Int64
	dropped      atomic.Int64
	requeued     atomic.Int64
	retriesTotal atomic.Int64

	subs     []*Subscription
	wg       sync.WaitGroup
	shutdown chan struct{}
	closed   atomic.Bool
}

// NewRelay creates a relay and starts its worker pool.
func NewRelay(cfg RelayConfig, route RouteFunc, metrics RelayMetricsRecorder) *Relay {
	cfg = cfg.withDefaults()

	r := &Relay{
		queue:  make(chan relayItem, cfg.BufferSize),
		sender: cloudevent.NewSender(cfg.HTTPTimeout),
		breakers: circuitbreaker.NewRegistry(circuitbreaker.Config{
			Threshold: defaultBreakerThreshold,
			Cooldown:  defaultBreakerCooldown,
		}),
		route:    route,
		config:   cfg,
		logger:   slog.With("component", "relay"),
		metrics:  metrics,
		shutdown: make(chan struct{}),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	if metrics != nil {
		go r.reportQueueSize()
	}

	r.logger.Info("Relay started", "workers", cfg.Workers, "buffer", cfg.BufferSize)
	return r
}

// Attach subscribes the relay to bus topics so matching events are forwarded
// to peers. The subscriptions are cancelled on Close.
func (r *Relay) Attach(bus Bus, topics ...Topic) error {
	for _, topic := range topics {
		sub, err := bus.Subscribe(topic, func(ctx context.Context, ev Event) {
			_ = r.Forward(ev)
		})
		if err != nil {
			return err
		}
		r.subs = append(r.subs, sub)
	}
	return nil
}

// Forward queues an event for delivery to its routed peer.
func (r *Relay) Forward(ev Event) error {
	if r.closed.Load() {
		return ErrClosed
	}

	select {
	case r.queue <- relayItem{event: ev}:
		r.queued.Add(1)
		return nil
	default:
		r.dropped.Add(1)
		if r.metrics != nil {
			r.metrics.RecordRelayDropped(context.Background())
		}
		r.logger.Warn("Event dropped, relay buffer full", "topic", ev.Topic, "kind", ev.Kind)
		return ErrBufferFull
	}
}

// RelayStats holds relay statistics.
type RelayStats struct {
	QueueDepth    int   `json:"queueDepth"`
	Queued        int64 `json:"queued"`
	Delivered     int64 `json:"delivered"`
	Failed        int64 `json:"failed"`
	Dropped       int64 `json:"dropped"`
	Requeued      int64 `json:"requeued"`
	RetriesTotal  int64 `json:"retriesTotal"`
	BreakersTotal int   `json:"breakersTotal"`
	BreakersOpen  int   `json:"breakersOpen"`
}

// Stats returns current relay statistics.
func (r *Relay) Stats() RelayStats {
	breakerStats := r.breakers.Stats()
	return RelayStats{
		QueueDepth:    len(r.queue),
		Queued:        r.queued.Load(),
		Delivered:     r.delivered.Load(),
		Failed:        r.failed.Load(),
		Dropped:       r.dropped.Load(),
		Requeued:      r.requeued.Load(),
		RetriesTotal:  r.retriesTotal.Load(),
		BreakersTotal: breakerStats.Total,
		BreakersOpen:  breakerStats.Open,
	}
}

// Close cancels bus subscriptions and shuts down the worker pool, attempting
// to deliver queued events within the context deadline.
func (r *Relay) Close(ctx context.Context) error {
	if r.closed.Swap(true) {
		return nil // already closed
	}

	for _, sub := range r.subs {
		sub.Cancel()
	}

	r.logger.Info("Relay shutting down", "queued", len(r.queue))
	close(r.shutdown)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Relay shutdown complete",
			"delivered", r.delivered.Load(),
			"failed", r.failed.Load(),
			"dropped", r.dropped.Load(),
		)
		return nil
	case <-ctx.Done():
		r.logger.Warn("Relay shutdown timed out", "remaining", len(r.queue))
		return ctx.Err()
	}
}

// reportQueueSize periodically reports the queue size metric.
func (r *Relay) reportQueueSize() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.metrics.RecordRelayQueueSize(context.Background(), int64(len(r.queue)))
		}
	}
}

// worker processes events from the queue.
func (r *Relay) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			// Drain remaining events before exiting
			for {
				select {
				case item := <-r.queue:
					r.deliver(item)
				default:
					return
				}
			}
		case item := <-r.queue:
			r.deliver(item)
		}
	}
}

// deliver routes, encodes, and sends one event with retry and breaker.
func (r *Relay) deliver(item relayItem) {
	dest, ok := r.route(item.event)
	if !ok {
		// No remote recipient registered for this event yet.
		r.dropped.Add(1)
		if r.metrics != nil {
			r.metrics.RecordRelayDropped(context.Background())
		}
		r.logger.Warn("No route for event", "topic", item.event.Topic, "kind", item.event.Kind)
		return
	}

	host := extractHost(dest.URL)
	breaker := r.breakers.Get(host)
	if !breaker.Allow() {
		r.requeue(item, host)
		return
	}

	ce, err := Encode(item.event, r.config.Source)
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("Failed to encode event", "topic", item.event.Topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := r.sendWithRetry(ctx, dest, ce); err != nil {
		breaker.RecordFailure()
		r.failed.Add(1)
		if r.metrics != nil {
			r.metrics.RecordRelayFailed(ctx)
		}
		r.logger.Warn("Delivery failed", "destination", host, "kind", item.event.Kind, "error", err)
		return
	}

	breaker.RecordSuccess()
	r.delivered.Add(1)
	if r.metrics != nil {
		r.metrics.RecordRelayDelivered(ctx, time.Since(start).Seconds())
	}
}

// requeue puts an event back in the queue after the breaker cooldown.
func (r *Relay) requeue(item relayItem, host string) {
	if item.requeues >= defaultMaxRequeues {
		r.dropped.Add(1)
		if r.metrics != nil {
			r.metrics.RecordRelayDropped(context.Background())
		}
		r.logger.Warn("Event dropped, max requeues reached",
			"destination", host, "kind", item.event.Kind, "requeues", item.requeues)
		return
	}

	item.requeues++
	r.requeued.Add(1)
	if r.metrics != nil {
		r.metrics.RecordRelayRequeued(context.Background())
	}

	// Requeue after cooldown so the circuit has time to recover
	go func() {
		select {
		case <-r.shutdown:
			return
		case <-time.After(defaultBreakerCooldown):
		}

		select {
		case r.queue <- item:
		case <-r.shutdown:
		default:
			r.dropped.Add(1)
			if r.metrics != nil {
				r.metrics.RecordRelayDropped(context.Background())
			}
			r.logger.Warn("Event dropped on requeue, buffer full", "destination", host, "kind", item.event.Kind)
		}
	}()
}

func (r *Relay) sendWithRetry(ctx context.Context, dest Destination, ce *cloudevent.CloudEvent) error {
	opts := cloudevent.SendOptions{SigningKey: dest.SigningKey}

	var lastErr error
	for attempt := range defaultMaxRetries + 1 {
		if attempt > 0 {
			r.retriesTotal.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff.Exponential(attempt, &backoff.Config{Jitter: 0.2})):
			}
		}

		lastErr = r.sender.Send(ctx, dest.URL, ce, opts)
		if lastErr == nil {
			return nil
		}
		if cloudevent.IsClientError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// extractHost extracts the host from a URL for circuit breaker keying.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
