package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"leaguecoord/internal/coordinator"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/health"
	"leaguecoord/internal/league"
	"leaguecoord/internal/testutil"
	"leaguecoord/internal/tracker"
	"leaguecoord/pkg/cloudevent"
)

type testEnv struct {
	router http.Handler
	bus    *eventbus.MemoryBus
	coord  *coordinator.Coordinator
	league *league.MemoryLeague
}

func newTestEnv(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()

	bus := eventbus.NewMemory(eventbus.MemoryConfig{BufferSize: 64}, nil)
	t.Cleanup(func() { bus.Close(context.Background()) })

	lg := league.NewMemory(&league.Roster{
		Players: []league.RosterPlayer{{ID: "p0"}, {ID: "p1"}},
	})

	coord := coordinator.New(coordinator.Config{}, bus, lg, nil, nil, nil)
	if err := coord.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(coord.Close)

	track := tracker.New(tracker.Config{}, nil)

	checker := health.NewChecker(
		health.Check{Name: "bus", Checker: bus},
		health.Check{Name: "league", Checker: lg},
	)

	cfg.Coordinator = coord
	cfg.Tracker = track
	cfg.League = lg
	cfg.Bus = bus
	cfg.HealthChecker = checker

	return &testEnv{
		router: NewRouter(cfg),
		bus:    bus,
		coord:  coord,
		league: lg,
	}
}

func doRequest(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func eventBody(t *testing.T, ev eventbus.Event) []byte {
	t.Helper()
	ce, err := eventbus.Encode(ev, "test")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	body, err := json.Marshal(ce)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return body
}

func TestLivez(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_Healthy(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
}

func TestReadyz_EmptyLeague(t *testing.T) {
	bus := eventbus.NewMemory(eventbus.MemoryConfig{}, nil)
	t.Cleanup(func() { bus.Close(context.Background()) })
	lg := league.NewMemory(&league.Roster{})
	checker := health.NewChecker(
		health.Check{Name: "bus", Checker: bus},
		health.Check{Name: "league", Checker: lg},
	)
	router := NewRouter(RouterConfig{
		Coordinator:   coordinator.New(coordinator.Config{}, bus, lg, nil, nil, nil),
		Tracker:       tracker.New(tracker.Config{}, nil),
		League:        lg,
		Bus:           bus,
		HealthChecker: checker,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestIngestEvent_GreetingDispatches(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	body := eventBody(t, eventbus.NewGreeting("actor-1", ""))
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(env, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}

	// The greeting must reach the coordinator and produce a dispatch.
	testutil.MustWaitFor(t, func() bool {
		return env.coord.Stats().JobsSent == 1
	})
}

func TestIngestEvent_InvalidBody(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(env, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEvent_UnknownType(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	ce := cloudevent.New("some.other.type", "test", "subject", "id-1", map[string]any{})
	body, _ := json.Marshal(ce)
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(env, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestEvent_SignatureVerification(t *testing.T) {
	env := newTestEnv(t, RouterConfig{EventKey: "secret"})

	ce, err := eventbus.Encode(eventbus.NewGreeting("actor-1", ""), "test")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	body, _ := json.Marshal(ce)

	// Missing signature
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if rec := doRequest(env, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("unsigned: status = %d, want 401", rec.Code)
	}

	// Wrong signature
	req = httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(cloudevent.SignatureHeader, "sha256=bogus")
	if rec := doRequest(env, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad signature: status = %d, want 401", rec.Code)
	}

	// Valid signature
	sig, err := cloudevent.Sign(ce, "secret")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(cloudevent.SignatureHeader, sig)
	if rec := doRequest(env, req); rec.Code != http.StatusAccepted {
		t.Errorf("signed: status = %d, want 202, body %s", rec.Code, rec.Body.String())
	}
}

func TestRunningJobs(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	if _, err := env.coord.OnActorGreeting(context.Background(), eventbus.Greeting{ActorID: "actor-1"}); err != nil {
		t.Fatalf("greeting failed: %v", err)
	}

	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/v1/jobs/running", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var jobs map[string]league.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if _, ok := jobs["actor-1"]; !ok {
		t.Errorf("response missing actor-1: %v", jobs)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	if _, err := env.coord.OnActorGreeting(context.Background(), eventbus.Greeting{ActorID: "actor-1"}); err != nil {
		t.Fatalf("greeting failed: %v", err)
	}

	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if stats.Coordinator.JobsSent != 1 {
		t.Errorf("JobsSent = %d, want 1", stats.Coordinator.JobsSent)
	}
}

func TestLeagueEndpoints(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/v1/league/players", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("players: status = %d, want 200", rec.Code)
	}
	var standings []league.Standing
	if err := json.Unmarshal(rec.Body.Bytes(), &standings); err != nil {
		t.Fatalf("invalid standings: %v", err)
	}
	if len(standings) != 2 {
		t.Errorf("standings = %d entries, want 2", len(standings))
	}

	rec = doRequest(env, httptest.NewRequest(http.MethodGet, "/v1/league/payoff", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("payoff: status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, RouterConfig{APIKey: "test-key"})

	// No auth header
	rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rec.Code)
	}

	// Wrong key
	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if rec := doRequest(env, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", rec.Code)
	}

	// Correct key
	req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	if rec := doRequest(env, req); rec.Code != http.StatusOK {
		t.Errorf("correct key: status = %d, want 200", rec.Code)
	}

	// Health endpoints stay open
	if rec := doRequest(env, httptest.NewRequest(http.MethodGet, "/livez", nil)); rec.Code != http.StatusOK {
		t.Errorf("livez: status = %d, want 200", rec.Code)
	}
}

func TestContentTypeMiddleware(t *testing.T) {
	env := newTestEnv(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "text/plain")
	if rec := doRequest(env, req); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}
