// Package observability provides metrics and scalar time-series recording.
package observability

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds all application metrics implementing the golden 4 signals:
// - Latency: How long dispatches and deliveries take
// - Traffic: Job and event throughput
// - Errors: Rate of failures
// - Saturation: Queue depths and outstanding jobs
type Metrics struct {
	meter metric.Meter

	// HTTP metrics (Latency, Traffic, Errors)
	HTTPRequestDuration metric.Float64Histogram
	HTTPRequestsTotal   metric.Int64Counter
	HTTPErrorsTotal     metric.Int64Counter

	// Coordinator metrics (Traffic, Errors, Saturation)
	JobsSentTotal        metric.Int64Counter
	JobsReceivedTotal    metric.Int64Counter
	GreetingErrorsTotal  metric.Int64Counter
	CollectSecondsPerJob metric.Float64Gauge
	RunningJobs          metric.Int64Gauge

	// Tracker metrics (Traffic)
	TrajectoriesTotal metric.Int64Counter

	// Bus metrics (Traffic, Errors)
	BusPublishedTotal metric.Int64Counter
	BusDroppedTotal   metric.Int64Counter

	// Relay metrics (Latency, Traffic, Errors, Saturation)
	RelayDuration  metric.Float64Histogram
	RelayDelivered metric.Int64Counter
	RelayFailed    metric.Int64Counter
	RelayDropped   metric.Int64Counter
	RelayRequeued  metric.Int64Counter
	RelayQueueSize metric.Int64Gauge

	// Named scalar series, created lazily by RecordScalar
	scalarMu sync.Mutex
	scalars  map[string]metric.Float64Gauge
}

// NewMetrics creates and registers all metrics with a Prometheus exporter.
func NewMetrics(ctx context.Context) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("leaguecoord")
	m := &Metrics{meter: meter, scalars: make(map[string]metric.Float64Gauge)}

	// HTTP metrics
	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPErrorsTotal, err = meter.Int64Counter(
		"http_errors_total",
		metric.WithDescription("Total number of HTTP errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Coordinator metrics
	m.JobsSentTotal, err = meter.Int64Counter(
		"coordinator_jobs_sent_total",
		metric.WithDescription("Total jobs dispatched to actors"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.JobsReceivedTotal, err = meter.Int64Counter(
		"coordinator_jobs_received_total",
		metric.WithDescription("Total finished jobs received from actors"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.GreetingErrorsTotal, err = meter.Int64Counter(
		"coordinator_greeting_errors_total",
		metric.WithDescription("Total greetings that produced no dispatch"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CollectSecondsPerJob, err = meter.Float64Gauge(
		"coordinator_collect_seconds_per_job",
		metric.WithDescription("Rolling average wall-clock seconds per finished job"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RunningJobs, err = meter.Int64Gauge(
		"coordinator_running_jobs",
		metric.WithDescription("Entries in the running-jobs table (last known assignment per actor)"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Tracker metrics
	m.TrajectoriesTotal, err = meter.Int64Counter(
		"tracker_trajectories_total",
		metric.WithDescription("Total trajectories received after warm-up"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Bus metrics
	m.BusPublishedTotal, err = meter.Int64Counter(
		"bus_published_total",
		metric.WithDescription("Total events published on the local bus"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.BusDroppedTotal, err = meter.Int64Counter(
		"bus_dropped_total",
		metric.WithDescription("Total events dropped on full subscriber queues"),
	)
	if err != nil {
		return nil, nil, err
	}

	// Relay metrics
	m.RelayDuration, err = meter.Float64Histogram(
		"relay_duration_seconds",
		metric.WithDescription("Peer event delivery latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RelayDelivered, err = meter.Int64Counter(
		"relay_delivered_total",
		metric.WithDescription("Total events successfully delivered to peers"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RelayFailed, err = meter.Int64Counter(
		"relay_failed_total",
		metric.WithDescription("Total events failed after retries"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RelayDropped, err = meter.Int64Counter(
		"relay_dropped_total",
		metric.WithDescription("Total events dropped (buffer full, no route, or max requeues)"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RelayRequeued, err = meter.Int64Counter(
		"relay_requeued_total",
		metric.WithDescription("Total events requeued due to open circuit"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RelayQueueSize, err = meter.Int64Gauge(
		"relay_queue_size",
		metric.WithDescription("Current number of events in the relay queue (saturation)"),
	)
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	attrs := metric.WithAttributes(
		methodAttr(method),
		pathAttr(path),
		statusAttr(statusCode),
	)

	m.HTTPRequestDuration.Record(ctx, durationSeconds, attrs)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)

	if statusCode >= 400 {
		m.HTTPErrorsTotal.Add(ctx, 1, attrs)
	}
}

// RecordJobSent records a job dispatched to an actor.
func (m *Metrics) RecordJobSent(ctx context.Context, playerID string, eval bool) {
	m.JobsSentTotal.Add(ctx, 1, metric.WithAttributes(playerAttr(playerID), evalAttr(eval)))
}

// RecordJobReceived records a finished job and the rolling collect speed.
func (m *Metrics) RecordJobReceived(ctx context.Context, playerID string, secondsPerJob float64) {
	m.JobsReceivedTotal.Add(ctx, 1, metric.WithAttributes(playerAttr(playerID)))
	m.CollectSecondsPerJob.Record(ctx, secondsPerJob)
}

// RecordGreetingError records a greeting that produced no dispatch.
func (m *Metrics) RecordGreetingError(ctx context.Context) {
	m.GreetingErrorsTotal.Add(ctx, 1)
}

// RecordRunningJobs records the running-jobs table size.
func (m *Metrics) RecordRunningJobs(ctx context.Context, count int64) {
	m.RunningJobs.Record(ctx, count)
}

// RecordTrajectories records trajectories received after warm-up.
func (m *Metrics) RecordTrajectories(ctx context.Context, playerID string, count int64) {
	m.TrajectoriesTotal.Add(ctx, count, metric.WithAttributes(playerAttr(playerID)))
}

// RecordBusPublished records an event published on the local bus.
func (m *Metrics) RecordBusPublished(ctx context.Context, topic string) {
	m.BusPublishedTotal.Add(ctx, 1, metric.WithAttributes(topicAttr(topic)))
}

// RecordBusDropped records an event dropped on a full subscriber queue.
func (m *Metrics) RecordBusDropped(ctx context.Context, topic string) {
	m.BusDroppedTotal.Add(ctx, 1, metric.WithAttributes(topicAttr(topic)))
}

// RecordRelayDelivered records a successful peer delivery with its duration.
func (m *Metrics) RecordRelayDelivered(ctx context.Context, durationSeconds float64) {
	m.RelayDelivered.Add(ctx, 1)
	m.RelayDuration.Record(ctx, durationSeconds)
}

// RecordRelayFailed records a failed peer delivery.
func (m *Metrics) RecordRelayFailed(ctx context.Context) {
	m.RelayFailed.Add(ctx, 1)
}

// RecordRelayDropped records a dropped relay event.
func (m *Metrics) RecordRelayDropped(ctx context.Context) {
	m.RelayDropped.Add(ctx, 1)
}

// RecordRelayRequeued records a requeued relay event.
func (m *Metrics) RecordRelayRequeued(ctx context.Context) {
	m.RelayRequeued.Add(ctx, 1)
}

// RecordRelayQueueSize records the current relay queue size.
func (m *Metrics) RecordRelayQueueSize(ctx context.Context, size int64) {
	m.RelayQueueSize.Record(ctx, size)
}

// RecordScalar records a named time-series sample. The step (the sample's
// logical x-axis position) travels as an attribute-free companion gauge so
// rate series keyed by trajectory count survive the Prometheus scrape model.
func (m *Metrics) RecordScalar(ctx context.Context, name string, value float64, step int64) {
	m.scalarGauge(sanitizeScalarName(name)).Record(ctx, value)
	m.scalarGauge(sanitizeScalarName(name) + "_step").Record(ctx, float64(step))
}

// scalarGauge returns the lazily-created gauge for a scalar series.
func (m *Metrics) scalarGauge(name string) metric.Float64Gauge {
	m.scalarMu.Lock()
	defer m.scalarMu.Unlock()

	if g, ok := m.scalars[name]; ok {
		return g
	}
	g, err := m.meter.Float64Gauge(name)
	if err != nil {
		// Fall back to a throwaway gauge; scalar reporting is best-effort.
		g, _ = m.meter.Float64Gauge("scalar_invalid")
	}
	m.scalars[name] = g
	return g
}
