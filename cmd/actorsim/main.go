// actorsim is a simulated league actor for test and demo setups: it greets
// the coordinator, executes dispatched jobs with randomized durations and
// outcomes, and reports trajectories and results back.
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

	"leaguecoord/internal/actorsim"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Actor simulator failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := actorsim.LoadConfigFromEnv()
	runner := actorsim.NewRunner(cfg)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      runner.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting actor ingress", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	var err error
	select {
	case err = <-serverErr:
		cancel()
		<-runErr
	case err = <-runErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		slog.Warn("Ingress shutdown error", "error", serr)
	}

	slog.Info("Actor simulator stopped", "jobs_done", runner.JobsDone())
	return err
}
