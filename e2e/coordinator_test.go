//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"leaguecoord/internal/actorsim"
	"leaguecoord/internal/api"
	"leaguecoord/internal/coordinator"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/health"
	"leaguecoord/internal/league"
	"leaguecoord/internal/testutil"
	"leaguecoord/internal/tracker"
)

const eventKey = "e2e-secret"

type stack struct {
	server *httptest.Server
	coord  *coordinator.Coordinator
	track  *tracker.Tracker
	league *league.MemoryLeague
	bus    *eventbus.MemoryBus
	relay  *eventbus.Relay
}

func createCoordinator(t *testing.T, playerIDs ...string) *stack {
	t.Helper()

	players := make([]league.RosterPlayer, len(playerIDs))
	for i, id := range playerIDs {
		players[i] = league.RosterPlayer{ID: id}
	}
	lg := league.NewMemory(&league.Roster{Players: players})

	bus := eventbus.NewMemory(eventbus.MemoryConfig{BufferSize: 256}, nil)
	endpoints := eventbus.NewEndpoints()
	relay := eventbus.NewRelay(eventbus.RelayConfig{
		Source:  "e2e-coordinator",
		Workers: 2,
	}, eventbus.RouteDispatch(endpoints), nil)

	coord := coordinator.New(coordinator.Config{
		NodeID:   "e2e-coordinator",
		EventKey: eventKey,
	}, bus, lg, endpoints, relay, nil)
	if err := coord.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	track := tracker.New(tracker.Config{Warmup: time.Nanosecond}, nil)
	for _, id := range playerIDs {
		if _, err := bus.Subscribe(eventbus.ActorDataTopic(id), func(ctx context.Context, ev eventbus.Event) {
			if ev.Batch != nil {
				track.OnData(ctx, ev.Batch)
			}
		}); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}

	checker := health.NewChecker(
		health.Check{Name: "bus", Checker: bus},
		health.Check{Name: "league", Checker: lg},
	)

	server := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Coordinator:   coord,
		Tracker:       track,
		League:        lg,
		Bus:           bus,
		Relay:         relay,
		HealthChecker: checker,
		EventKey:      eventKey,
	}))

	t.Cleanup(func() {
		server.Close()
		coord.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		relay.Close(ctx)
		bus.Close(ctx)
	})

	return &stack{
		server: server,
		coord:  coord,
		track:  track,
		league: lg,
		bus:    bus,
		relay:  relay,
	}
}

func TestCoordinatorActorLoop(t *testing.T) {
	s := createCoordinator(t, "main_player_0", "main_player_1")

	const jobsPerActor = 2

	results := make([]chan error, 0, 2)
	for _, actorID := range []string{"actor-1", "actor-2"} {
		_, done := startActorWithIngress(t, s, actorID, jobsPerActor)
		results = append(results, done)
	}

	for i, done := range results {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("actor %d run failed: %v", i, err)
			}
		case <-time.After(30 * time.Second):
			t.Fatalf("actor %d did not finish", i)
		}
	}

	const totalJobs = 2 * jobsPerActor

	stats := s.coord.Stats()
	if stats.JobsSent != totalJobs {
		t.Errorf("JobsSent = %d, want %d", stats.JobsSent, totalJobs)
	}

	// Finished jobs and payoff updates flow asynchronously.
	testutil.MustWaitFor(t, func() bool {
		return s.coord.Stats().JobsReceived == totalJobs
	})

	testutil.MustWaitFor(t, func() bool {
		games := int64(0)
		for _, entry := range s.league.Payoff().Snapshot() {
			games += entry.Wins + entry.Draws + entry.Losses
		}
		return games == totalJobs
	})

	// With a nanosecond warm-up, at least the later batches count.
	testutil.MustWaitFor(t, func() bool {
		st := s.track.Stats()
		return st.WarmupFinished && st.TotalTrajectories > 0
	})

	// Both actors hold their latest job in the running-jobs table.
	running := s.coord.RunningJobs()
	if len(running) != 2 {
		t.Errorf("running jobs = %d, want 2", len(running))
	}
}

// startActorWithIngress wires the runner's advertised URL to a live httptest
// ingress before starting it.
func startActorWithIngress(t *testing.T, s *stack, actorID string, jobs int) (*actorsim.Runner, chan error) {
	t.Helper()

	cfg := &actorsim.Config{
		ActorID:        actorID,
		CoordinatorURL: s.server.URL + "/v1/events",
		EventKey:       eventKey,
		WinProbability: 0.5,
		EnvCount:       2,
		TrajPerEnv:     4,
		MaxJobs:        jobs,
	}
	runner := actorsim.NewRunner(cfg)

	ingress := httptest.NewServer(runner.Handler())
	t.Cleanup(ingress.Close)
	cfg.AdvertiseURL = ingress.URL + "/v1/events"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()
	return runner, done
}
