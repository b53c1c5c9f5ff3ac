// Package coordinator is the league coordinator core: it turns actor idle
// signals into round-robin job assignments, folds completion and learner
// events back into the league, and reports progress.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"leaguecoord/internal/apperrors"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/league"
)

// ScalarSecondsPerJob is the rolling average job duration series, keyed by
// the total number of received jobs.
const ScalarSecondsPerJob = "collect_seconds_per_job"

// Forwarder pushes dispatch events toward remote actor ingresses. Dispatch
// topics are per-actor, so forwarding cannot ride a static bus
// subscription.
type Forwarder interface {
	Forward(ev eventbus.Event) error
}

// MetricsRecorder is the subset of the observability surface the
// coordinator reports through.
type MetricsRecorder interface {
	RecordJobSent(ctx context.Context, playerID string, eval bool)
	RecordJobReceived(ctx context.Context, playerID string, secondsPerJob float64)
	RecordGreetingError(ctx context.Context)
	RecordRunningJobs(ctx context.Context, count int64)
	RecordScalar(ctx context.Context, name string, value float64, step int64)
}

// Stats is a point-in-time snapshot of coordinator counters.
type Stats struct {
	JobsSent            int64   `json:"jobsSent"`
	JobsReceived        int64   `json:"jobsReceived"`
	RunningJobs         int     `json:"runningJobs"`
	TotalCollectSeconds float64 `json:"totalCollectSeconds"`
	AvgSecondsPerJob    float64 `json:"avgSecondsPerJob"`
}

// Coordinator owns all scheduling state. Mutate it only through the event
// handlers; reads go through snapshot methods.
type Coordinator struct {
	config    Config
	logger    *slog.Logger
	bus       eventbus.Bus
	league    league.League
	endpoints *eventbus.Endpoints
	forward   Forwarder
	metrics   MetricsRecorder
	now       func() time.Time

	// mu guards the dispatch counter and the running-jobs table.
	mu          sync.Mutex
	totalSent   int64
	runningJobs map[string]*league.Job

	// statsMu guards completion accounting and log throttling.
	statsMu        sync.Mutex
	totalReceived  int64
	collectStarted bool
	lastCollect    time.Time
	totalCollect   float64
	lastMetaLog    time.Time

	subs []*eventbus.Subscription
}

// New creates a coordinator. endpoints, forward and metrics may be nil;
// without them, dispatch events stay on the local bus only.
func New(cfg Config, bus eventbus.Bus, lg league.League, endpoints *eventbus.Endpoints, forward Forwarder, metrics MetricsRecorder) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		config:      cfg,
		logger:      slog.With("component", "coordinator", "node_id", cfg.NodeID),
		bus:         bus,
		league:      lg,
		endpoints:   endpoints,
		forward:     forward,
		metrics:     metrics,
		now:         time.Now,
		runningJobs: make(map[string]*league.Job),
	}
}

// Attach subscribes the coordinator's handlers on the bus. Call once.
func (c *Coordinator) Attach() error {
	handlers := []struct {
		topic eventbus.Topic
		h     eventbus.Handler
	}{
		{eventbus.TopicActorGreeting, c.handleGreeting},
		{eventbus.TopicJobFinished, c.handleJobFinished},
		{eventbus.TopicLearnerMeta, c.handleLearnerMeta},
	}
	for _, entry := range handlers {
		sub, err := c.bus.Subscribe(entry.topic, entry.h)
		if err != nil {
			c.Close()
			return err
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

func (c *Coordinator) handleGreeting(ctx context.Context, ev eventbus.Event) {
	if ev.Greeting == nil {
		return
	}
	if _, err := c.OnActorGreeting(ctx, *ev.Greeting); err != nil {
		c.logger.Error("greeting handling failed",
			"actor_id", ev.Greeting.ActorID,
			"error", err)
	}
}

func (c *Coordinator) handleJobFinished(ctx context.Context, ev eventbus.Event) {
	if ev.Job == nil {
		return
	}
	c.OnJobFinished(ctx, ev.Job)
}

func (c *Coordinator) handleLearnerMeta(ctx context.Context, ev eventbus.Event) {
	if ev.Meta == nil {
		return
	}
	c.OnLearnerMeta(ctx, *ev.Meta)
}

// OnActorGreeting assigns the next job to an idle actor and publishes it on
// the actor's dispatch topic. The sequence number is assigned and the
// counter advanced under one critical section, so sequence numbers are
// unique and strictly increasing.
func (c *Coordinator) OnActorGreeting(ctx context.Context, g eventbus.Greeting) (*league.Job, error) {
	c.logger.Info("received actor greeting", "actor_id", g.ActorID)

	if c.endpoints != nil && g.ReplyURL != "" {
		c.endpoints.Set(g.ActorID, eventbus.Destination{
			URL:        g.ReplyURL,
			SigningKey: c.config.EventKey,
		})
	}

	c.mu.Lock()
	players := c.league.ActivePlayerIDs()
	if len(players) == 0 {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordGreetingError(ctx)
		}
		return nil, apperrors.Config("league has no active players to sample from")
	}
	playerID := players[c.totalSent%int64(len(players))]
	job, err := c.league.GetJobInfo(playerID)
	if err != nil || job == nil {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordGreetingError(ctx)
		}
		return nil, apperrors.NoJob(playerID, err)
	}
	job.SeqNo = c.totalSent
	c.totalSent++
	c.mu.Unlock()

	// Safe unguarded: SeqNo is already assigned and the job is not yet
	// shared.
	if job.SeqNo > 0 && job.SeqNo%c.config.EvalFrequency == 0 {
		job.IsEval = true
	}
	job.ActorID = g.ActorID

	c.mu.Lock()
	c.runningJobs[g.ActorID] = job
	running := int64(len(c.runningJobs))
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordJobSent(ctx, job.LaunchPlayerID, job.IsEval)
		c.metrics.RecordRunningJobs(ctx, running)
	}

	dispatch := eventbus.NewDispatch(job)
	if err := c.bus.Publish(dispatch); err != nil {
		c.logger.Warn("dispatch publish failed",
			"actor_id", g.ActorID,
			"seq_no", job.SeqNo,
			"error", err)
	}
	if c.forward != nil {
		if err := c.forward.Forward(dispatch); err != nil {
			c.logger.Warn("dispatch forward failed",
				"actor_id", g.ActorID,
				"seq_no", job.SeqNo,
				"error", err)
		}
	}

	c.logger.Info("dispatched job",
		"actor_id", g.ActorID,
		"seq_no", job.SeqNo,
		"player_id", job.LaunchPlayerID,
		"opponent_id", job.OpponentID(),
		"eval", job.IsEval)
	return job, nil
}

// OnJobFinished accounts a completed job and reconciles its outcome into
// the league payoff table. The first completion initializes the timing
// reference and contributes no gap.
func (c *Coordinator) OnJobFinished(ctx context.Context, job *league.Job) {
	now := c.now()

	c.statsMu.Lock()
	c.totalReceived++
	if c.collectStarted {
		c.totalCollect += now.Sub(c.lastCollect).Seconds()
	} else {
		c.collectStarted = true
	}
	c.lastCollect = now
	received := c.totalReceived
	avg := c.totalCollect / float64(received)
	c.statsMu.Unlock()

	c.logger.Info("received finished job",
		"player_id", job.LaunchPlayerID,
		"seq_no", job.SeqNo,
		"total_received", received,
		"seconds_per_job", avg)

	if c.metrics != nil {
		c.metrics.RecordJobReceived(ctx, job.LaunchPlayerID, avg)
		c.metrics.RecordScalar(ctx, ScalarSecondsPerJob, avg, received)
	}

	if err := c.league.UpdatePayoff(job); err != nil {
		c.logger.Warn("payoff update failed",
			"seq_no", job.SeqNo,
			"error", err)
	}
}

// OnLearnerMeta forwards a learner checkpoint to the league. Idempotency is
// the league's concern; metas arrive at high frequency, so logging is
// throttled.
func (c *Coordinator) OnLearnerMeta(ctx context.Context, meta league.PlayerMeta) {
	now := c.now()

	c.statsMu.Lock()
	logIt := now.Sub(c.lastMetaLog) >= c.config.MetaLogInterval
	if logIt {
		c.lastMetaLog = now
	}
	c.statsMu.Unlock()

	if logIt {
		c.logger.Info("received learner meta",
			"player_id", meta.PlayerID,
			"train_step", meta.TrainStep)
	}

	if err := c.league.UpdateActivePlayer(meta); err != nil {
		c.logger.Warn("active player update failed",
			"player_id", meta.PlayerID,
			"error", err)
	}
	if err := c.league.CreateHistoricalPlayer(meta); err != nil {
		c.logger.Warn("historical player snapshot failed",
			"player_id", meta.PlayerID,
			"error", err)
	}
}

// Run is the heartbeat loop: a short tick for liveness and a coarse
// interval that logs the running-jobs table. Blocks until ctx is
// cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	lastStatus := c.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.now().Sub(lastStatus) >= c.config.StatusInterval {
				lastStatus = c.now()
				c.logStatus()
			}
		}
	}
}

func (c *Coordinator) logStatus() {
	jobs := c.RunningJobs()
	actors := make([]string, 0, len(jobs))
	for actorID := range jobs {
		actors = append(actors, actorID)
	}
	c.logger.Info("running jobs status",
		"count", len(jobs),
		"actors", actors)
}

// RunningJobs returns a copy of the running-jobs table, keyed by actor id.
// Entries are never expired; each actor's slot holds its latest job.
func (c *Coordinator) RunningJobs() map[string]league.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]league.Job, len(c.runningJobs))
	for actorID, job := range c.runningJobs {
		out[actorID] = *job
	}
	return out
}

// Stats returns a snapshot of coordinator counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	sent := c.totalSent
	running := len(c.runningJobs)
	c.mu.Unlock()

	c.statsMu.Lock()
	received := c.totalReceived
	total := c.totalCollect
	c.statsMu.Unlock()

	s := Stats{
		JobsSent:            sent,
		JobsReceived:        received,
		RunningJobs:         running,
		TotalCollectSeconds: total,
	}
	if received > 0 {
		s.AvgSecondsPerJob = total / float64(received)
	}
	return s
}

// Close cancels the coordinator's bus subscriptions. Idempotent.
func (c *Coordinator) Close() {
	for _, sub := range c.subs {
		sub.Cancel()
	}
	c.subs = nil
	c.logger.Info("coordinator closed")
}
