// Package api provides the HTTP API handlers and routing for the
// coordinator service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"leaguecoord/internal/apperrors"
	"leaguecoord/internal/coordinator"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/health"
	"leaguecoord/internal/league"
	"leaguecoord/internal/observability"
	"leaguecoord/internal/tracker"
	"leaguecoord/pkg/cloudevent"
)

// maxRequestBodySize limits request body to 1MB to prevent memory exhaustion
const maxRequestBodySize = 1 << 20 // 1 MB

// Handler contains HTTP handlers for the coordinator API
type Handler struct {
	coord    *coordinator.Coordinator
	track    *tracker.Tracker
	league   *league.MemoryLeague
	bus      eventbus.Bus
	relay    *eventbus.Relay
	metrics  *observability.Metrics
	health   *health.Checker
	eventKey string
}

// NewHandler creates a new API handler
func NewHandler(cfg RouterConfig) *Handler {
	return &Handler{
		coord:    cfg.Coordinator,
		track:    cfg.Tracker,
		league:   cfg.League,
		bus:      cfg.Bus,
		relay:    cfg.Relay,
		metrics:  cfg.Metrics,
		health:   cfg.HealthChecker,
		eventKey: cfg.EventKey,
	}
}

// IngestEvent handles POST /v1/events - the CloudEvents ingress. Peer nodes
// (actors, learners) deliver greeting, finished-job, meta and data events
// here; they are verified, decoded and published on the local bus.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	ce, err := cloudevent.Receive(r, h.eventKey, maxRequestBodySize)
	if err != nil {
		if errors.Is(err, cloudevent.ErrBadSignature) {
			h.writeError(w, http.StatusUnauthorized, "invalid event signature")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid CloudEvent: "+err.Error())
		return
	}

	ev, err := eventbus.Decode(ce)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unsupported event: "+err.Error())
		return
	}

	if err := h.bus.Publish(ev); err != nil {
		slog.WarnContext(r.Context(), "Failed to publish ingested event",
			"type", ce.Type,
			"error", err)
		// Still return accepted - delivery to subscribers is async and
		// lossy by contract.
	}

	w.WriteHeader(http.StatusAccepted)
}

// RunningJobs handles GET /v1/jobs/running
func (h *Handler) RunningJobs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.RunningJobs())
}

// StatsResponse aggregates the service counters.
type StatsResponse struct {
	Coordinator coordinator.Stats    `json:"coordinator"`
	Tracker     tracker.Stats        `json:"tracker"`
	Bus         eventbus.Stats       `json:"bus"`
	Relay       *eventbus.RelayStats `json:"relay,omitempty"`
}

// Stats handles GET /v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Coordinator: h.coord.Stats(),
		Tracker:     h.track.Stats(),
		Bus:         h.bus.Stats(),
	}
	if h.relay != nil {
		stats := h.relay.Stats()
		resp.Relay = &stats
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// LeaguePlayers handles GET /v1/league/players
func (h *Handler) LeaguePlayers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.league.Standings())
}

// LeaguePayoff handles GET /v1/league/payoff
func (h *Handler) LeaguePayoff(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.league.Payoff().Snapshot())
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 if the service is ready to accept traffic.
// Returns 503 if the bus or the league cannot accept work.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// handleError handles errors from the core with appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= 500 {
		slog.Error("Internal error", "error", err, "path", r.URL.Path)
	} else {
		slog.Warn("Client error", "error", err, "path", r.URL.Path, "status", status)
	}
	h.writeError(w, status, err.Error())
}
