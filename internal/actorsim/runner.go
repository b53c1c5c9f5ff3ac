// Package actorsim simulates a league actor: it greets the coordinator when
// idle, executes the dispatched match with a randomized duration and
// outcome, and reports trajectories and the finished job back. Used by e2e
// tests and for manual runs against a live coordinator.
package actorsim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/league"
	"leaguecoord/pkg/cloudevent"
)

const maxEventBodySize = 1 << 20 // 1 MB

// Runner drives the greet/execute/report loop of one simulated actor.
type Runner struct {
	config *Config
	logger *slog.Logger
	sender *cloudevent.Sender
	source string

	jobs     chan *league.Job
	jobsDone atomic.Int64
}

// NewRunner creates a new simulator runner.
func NewRunner(cfg *Config) *Runner {
	cfg = cfg.withDefaults()
	return &Runner{
		config: cfg,
		logger: slog.With("component", "actorsim", "actor_id", cfg.ActorID),
		sender: cloudevent.NewSender(cfg.SendTimeout),
		source: "actorsim/" + cfg.ActorID,
		jobs:   make(chan *league.Job, 16),
	}
}

// Handler returns the actor's event ingress. The coordinator relays dispatch
// events here.
func (r *Runner) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", r.ingestEvent)
	return mux
}

func (r *Runner) ingestEvent(w http.ResponseWriter, req *http.Request) {
	ce, err := cloudevent.Receive(req, r.config.EventKey, maxEventBodySize)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, cloudevent.ErrBadSignature) {
			status = http.StatusUnauthorized
		}
		http.Error(w, err.Error(), status)
		return
	}

	ev, err := eventbus.Decode(ce)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if ev.Kind != eventbus.KindDispatch || ev.Job == nil {
		// Not for us; acknowledge and drop.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if ev.Job.ActorID != r.config.ActorID {
		r.logger.Warn("dispatch for another actor",
			"dispatch_actor_id", ev.Job.ActorID)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	select {
	case r.jobs <- ev.Job:
	default:
		r.logger.Warn("job queue full, dropping dispatch", "seq_no", ev.Job.SeqNo)
	}
	w.WriteHeader(http.StatusAccepted)
}

// Greet tells the coordinator this actor is idle.
func (r *Runner) Greet(ctx context.Context) error {
	ce, err := eventbus.Encode(eventbus.NewGreeting(r.config.ActorID, r.config.AdvertiseURL), r.source)
	if err != nil {
		return err
	}
	return r.sender.Send(ctx, r.config.CoordinatorURL, ce, cloudevent.SendOptions{
		SigningKey: r.config.EventKey,
	})
}

// Run greets the coordinator and executes dispatched jobs until ctx is
// cancelled or MaxJobs is reached. The ingress handler must already be
// served when Run is called.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Greet(ctx); err != nil {
		return fmt.Errorf("initial greeting failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-r.jobs:
			if err := r.execute(ctx, job); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Error("job execution failed", "seq_no", job.SeqNo, "error", err)
			}
			done := r.jobsDone.Add(1)
			if r.config.MaxJobs > 0 && done >= int64(r.config.MaxJobs) {
				r.logger.Info("reached job limit", "jobs", done)
				return nil
			}
			if err := r.Greet(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("re-greeting failed", "error", err)
			}
		}
	}
}

// JobsDone returns how many jobs this actor has completed.
func (r *Runner) JobsDone() int64 {
	return r.jobsDone.Load()
}

func (r *Runner) execute(ctx context.Context, job *league.Job) error {
	duration := r.jobDuration()
	r.logger.Info("executing job",
		"seq_no", job.SeqNo,
		"player_id", job.LaunchPlayerID,
		"opponent_id", job.OpponentID(),
		"eval", job.IsEval,
		"duration", duration)

	if duration > 0 {
		timer := time.NewTimer(duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	// Evaluation jobs produce no training data.
	if !job.IsEval {
		batch := r.buildBatch(job.LaunchPlayerID)
		ce, err := eventbus.Encode(eventbus.NewActorData(batch), r.source)
		if err != nil {
			return err
		}
		if err := r.sender.Send(ctx, r.config.CoordinatorURL, ce, cloudevent.SendOptions{
			SigningKey: r.config.EventKey,
		}); err != nil {
			return fmt.Errorf("data batch send failed: %w", err)
		}
	}

	job.Result = r.matchResult(job)
	ce, err := eventbus.Encode(eventbus.NewJobFinished(job), r.source)
	if err != nil {
		return err
	}
	if err := r.sender.Send(ctx, r.config.CoordinatorURL, ce, cloudevent.SendOptions{
		SigningKey: r.config.EventKey,
	}); err != nil {
		return fmt.Errorf("finished-job send failed: %w", err)
	}
	return nil
}

func (r *Runner) jobDuration() time.Duration {
	base := r.config.JobDuration
	if base <= 0 {
		return 0
	}
	jitter := r.config.DurationJitter
	if jitter <= 0 {
		return base
	}
	spread := (2*rand.Float64() - 1) * jitter // [-jitter, +jitter)
	return time.Duration(float64(base) * (1 + spread))
}

func (r *Runner) matchResult(job *league.Job) map[string]string {
	if rand.Float64() < r.config.WinProbability {
		return map[string]string{league.ResultWinner: job.LaunchPlayerID}
	}
	return map[string]string{league.ResultWinner: job.OpponentID()}
}

func (r *Runner) buildBatch(playerID string) *league.TrajectoryBatch {
	envs := make([]league.EnvTrajectories, r.config.EnvCount)
	for i := range envs {
		trajs := make([]league.Trajectory, r.config.TrajPerEnv)
		for j := range trajs {
			trajs[j] = league.Trajectory{Steps: 16 + rand.IntN(16)}
		}
		envs[i] = league.EnvTrajectories{EnvID: i, Trajectories: trajs}
	}
	return &league.TrajectoryBatch{PlayerID: playerID, Envs: envs}
}
