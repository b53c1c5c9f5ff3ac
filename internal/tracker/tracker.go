// Package tracker converts raw data-arrival events into trajectory
// throughput statistics without blocking the dispatch path.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"leaguecoord/internal/config"
	"leaguecoord/internal/league"
)

// Scalar series published once warm-up completes. Both are keyed by the
// all-time trajectory count.
const (
	ScalarCurrentRate = "trajectory_rate_current"
	ScalarTotalRate   = "trajectory_rate_total"
)

const defaultWarmup = 10 * time.Minute

// MetricsRecorder is the subset of the observability surface the tracker
// reports through.
type MetricsRecorder interface {
	RecordTrajectories(ctx context.Context, playerID string, count int64)
	RecordScalar(ctx context.Context, name string, value float64, step int64)
}

// Config holds tracker configuration.
type Config struct {
	// Warmup is how much accumulated inter-arrival time must pass before
	// rate reporting starts. Early samples are collection warm-up noise.
	Warmup time.Duration
}

// LoadConfigFromEnv loads tracker configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		Warmup: config.GetDurationEnv("TRACKER_WARMUP", defaultWarmup),
	}
}

// Stats is a point-in-time snapshot of tracker state.
type Stats struct {
	WarmupFinished    bool    `json:"warmupFinished"`
	TotalTrajectories int64   `json:"totalTrajectories"`
	TotalSeconds      float64 `json:"totalSeconds"`
}

// Tracker accumulates inter-arrival times and trajectory counts from data
// batches. Safe for concurrent use; bus delivery may call OnData from
// multiple goroutines.
type Tracker struct {
	logger  *slog.Logger
	metrics MetricsRecorder
	warmup  time.Duration
	now     func() time.Time

	mu           sync.Mutex
	started      bool
	last         time.Time
	totalSeconds float64
	warmupDone   bool
	trajCount    int64
}

// New creates a tracker. metrics may be nil.
func New(cfg Config, metrics MetricsRecorder) *Tracker {
	if cfg.Warmup <= 0 {
		cfg.Warmup = defaultWarmup
	}
	return &Tracker{
		logger:  slog.With("component", "tracker"),
		metrics: metrics,
		warmup:  cfg.Warmup,
		now:     time.Now,
	}
}

// OnData records one trajectory batch arrival. During warm-up only the
// elapsed-time accumulator advances; the warm-up check runs before the
// current gap is added, so the flip happens on the arrival after the
// threshold is crossed.
func (t *Tracker) OnData(ctx context.Context, batch *league.TrajectoryBatch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.started {
		t.started = true
		t.last = now
	}

	if !t.warmupDone && t.totalSeconds >= t.warmup.Seconds() {
		t.warmupDone = true
		t.totalSeconds = 0
		t.logger.Info("collection warm-up finished, rate reporting enabled",
			"warmup", t.warmup)
	}

	elapsed := now.Sub(t.last).Seconds()
	t.totalSeconds += elapsed
	t.last = now

	if !t.warmupDone {
		return
	}

	count := int64(batch.Count())
	t.trajCount += count
	if t.metrics != nil {
		t.metrics.RecordTrajectories(ctx, batch.PlayerID, count)
	}

	if elapsed <= 0 || t.totalSeconds <= 0 {
		// Near-simultaneous arrivals; skip the rate sample rather than
		// publish Inf/NaN.
		t.logger.Warn("zero elapsed window, skipping rate sample",
			"player_id", batch.PlayerID,
			"count", count)
		return
	}

	currentRate := float64(count) / elapsed
	totalRate := float64(t.trajCount) / t.totalSeconds

	t.logger.Info("received trajectory batch",
		"player_id", batch.PlayerID,
		"count", count,
		"current_rate", currentRate,
		"total_rate", totalRate)

	if t.metrics != nil {
		t.metrics.RecordScalar(ctx, ScalarCurrentRate, currentRate, t.trajCount)
		t.metrics.RecordScalar(ctx, ScalarTotalRate, totalRate, t.trajCount)
	}
}

// Stats returns a snapshot of the tracker's counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		WarmupFinished:    t.warmupDone,
		TotalTrajectories: t.trajCount,
		TotalSeconds:      t.totalSeconds,
	}
}
