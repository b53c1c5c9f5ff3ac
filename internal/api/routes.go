package api

import (
	"net/http"

	"leaguecoord/internal/coordinator"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/health"
	"leaguecoord/internal/league"
	"leaguecoord/internal/observability"
	"leaguecoord/internal/tracker"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Coordinator   *coordinator.Coordinator
	Tracker       *tracker.Tracker
	League        *league.MemoryLeague
	Bus           eventbus.Bus
	Relay         *eventbus.Relay
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	APIKey        string
	EventKey      string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Event ingress - authenticated by HMAC signature, not bearer token
	mux.HandleFunc("POST /v1/events", handler.IngestEvent)

	// Read surface - auth required
	authMiddleware := AuthMiddleware(cfg.APIKey)
	mux.Handle("GET /v1/jobs/running", authMiddleware(http.HandlerFunc(handler.RunningJobs)))
	mux.Handle("GET /v1/stats", authMiddleware(http.HandlerFunc(handler.Stats)))
	mux.Handle("GET /v1/league/players", authMiddleware(http.HandlerFunc(handler.LeaguePlayers)))
	mux.Handle("GET /v1/league/payoff", authMiddleware(http.HandlerFunc(handler.LeaguePayoff)))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
