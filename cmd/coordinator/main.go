// coordinator is the league coordinator service: it schedules jobs for
// idle actors, tracks collection throughput, and maintains the league
// payoff state.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaguecoord/internal/api"
	"leaguecoord/internal/config"
	"leaguecoord/internal/coordinator"
	"leaguecoord/internal/eventbus"
	"leaguecoord/internal/health"
	"leaguecoord/internal/league"
	"leaguecoord/internal/observability"
	"leaguecoord/internal/tracker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg := config.LoadServiceConfig()
	coordCfg := coordinator.LoadConfigFromEnv()
	trackerCfg := tracker.LoadConfigFromEnv()
	busCfg := eventbus.LoadMemoryConfigFromEnv()
	relayCfg := eventbus.LoadRelayConfigFromEnv()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Load the league roster
	roster, err := league.LoadRoster(svcCfg.RosterPath)
	if err != nil {
		return err
	}
	lg := league.NewMemory(roster)
	slog.Info("League roster loaded",
		"path", svcCfg.RosterPath,
		"players", len(roster.Players))

	// Event plumbing: local bus, actor endpoint registry, outbound relay
	bus := eventbus.NewMemory(busCfg, metrics)
	endpoints := eventbus.NewEndpoints()
	relay := eventbus.NewRelay(relayCfg, eventbus.RouteDispatch(endpoints), metrics)

	// Coordinator core
	coord := coordinator.New(coordCfg, bus, lg, endpoints, relay, metrics)
	if err := coord.Attach(); err != nil {
		return err
	}

	// Throughput tracker listens on every active player's data topic
	track := tracker.New(trackerCfg, metrics)
	for _, playerID := range lg.ActivePlayerIDs() {
		_, err := bus.Subscribe(eventbus.ActorDataTopic(playerID), func(ctx context.Context, ev eventbus.Event) {
			if ev.Batch != nil {
				track.OnData(ctx, ev.Batch)
			}
		})
		if err != nil {
			return err
		}
	}

	// Heartbeat
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go coord.Run(heartbeatCtx)

	// Create health checker
	healthChecker := health.NewChecker(
		health.Check{Name: "bus", Checker: bus},
		health.Check{Name: "league", Checker: lg},
	)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Coordinator:   coord,
		Tracker:       track,
		League:        lg,
		Bus:           bus,
		Relay:         relay,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		APIKey:        svcCfg.APIKey,
		EventKey:      svcCfg.EventKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}
	if svcCfg.EventKey == "" {
		slog.Warn("Event signing disabled - no EVENT_KEY configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: Stop the heartbeat and the coordinator's subscriptions
	stopHeartbeat()
	coord.Close()

	// Phase 4: Drain the relay, then the bus
	relayCtx, relayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer relayCancel()
	if err := relay.Close(relayCtx); err != nil {
		slog.Warn("Relay shutdown error", "error", err)
	}

	busCtx, busCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer busCancel()
	if err := bus.Close(busCtx); err != nil {
		slog.Warn("Bus shutdown error", "error", err)
	}

	// Log final stats
	coordStats := coord.Stats()
	busStats := bus.Stats()
	slog.Info("Coordinator stats",
		"jobs_sent", coordStats.JobsSent,
		"jobs_received", coordStats.JobsReceived,
		"events_published", busStats.Published,
		"events_dropped", busStats.Dropped,
	)

	slog.Info("Shutdown complete")
	return nil
}
