package health

import (
	"context"
	"errors"
	"testing"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

func alwaysReady() ReadinessChecker {
	return readyFunc(func(ctx context.Context) error { return nil })
}

func neverReady(err error) ReadinessChecker {
	return readyFunc(func(ctx context.Context) error { return err })
}

func TestChecker_Liveness(t *testing.T) {
	t.Parallel()
	checker := NewChecker()

	response := checker.Liveness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness_AllHealthy(t *testing.T) {
	t.Parallel()
	checker := NewChecker(
		Check{Name: "bus", Checker: alwaysReady()},
		Check{Name: "league", Checker: alwaysReady()},
	)

	response := checker.Readiness(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
	if len(response.Checks) != 2 {
		t.Errorf("Expected 2 checks, got %d", len(response.Checks))
	}
}

func TestChecker_Readiness_OneUnhealthy(t *testing.T) {
	t.Parallel()
	checker := NewChecker(
		Check{Name: "bus", Checker: alwaysReady()},
		Check{Name: "league", Checker: neverReady(errors.New("no players configured"))},
	)

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}

	leagueCheck, ok := response.Checks["league"]
	if !ok {
		t.Fatal("Expected league check to be present")
	}
	if leagueCheck.Status != StatusUnhealthy {
		t.Errorf("Expected league check to be unhealthy, got %s", leagueCheck.Status)
	}
	if leagueCheck.Message != "no players configured" {
		t.Errorf("Unexpected message: %s", leagueCheck.Message)
	}
}

func TestChecker_Readiness_NilChecker(t *testing.T) {
	t.Parallel()
	checker := NewChecker(Check{Name: "bus"})

	response := checker.Readiness(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status, got %s", response.Status)
	}
}

func TestChecker_Readiness_ShuttingDown(t *testing.T) {
	t.Parallel()
	checker := NewChecker(Check{Name: "bus", Checker: alwaysReady()})

	if got := checker.Readiness(context.Background()); got.Status != StatusHealthy {
		t.Fatalf("Expected healthy before shutdown, got %s", got.Status)
	}

	checker.SetShuttingDown()

	response := checker.Readiness(context.Background())
	if response.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy status during shutdown, got %s", response.Status)
	}
	if _, ok := response.Checks["shutdown"]; !ok {
		t.Error("Expected shutdown check to be present")
	}
}

func TestResponse_IsHealthy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		status   Status
		expected bool
	}{
		{"healthy", StatusHealthy, true},
		{"unhealthy", StatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			response := &Response{Status: tt.status}
			if response.IsHealthy() != tt.expected {
				t.Errorf("IsHealthy() = %v, want %v", response.IsHealthy(), tt.expected)
			}
		})
	}
}
