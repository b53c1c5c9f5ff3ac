package observability

import (
	"context"
	"testing"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, handler, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	if metrics == nil {
		t.Fatal("Expected metrics to be non-nil")
	}

	if handler == nil {
		t.Fatal("Expected handler to be non-nil")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, _, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/livez", 200, 0.001)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/events", 202, 0.050)
	metrics.RecordHTTPRequest(ctx, "GET", "/v1/jobs/running", 200, 0.010)
	metrics.RecordHTTPRequest(ctx, "GET", "/v1/league/payoff", 200, 0.005)
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/events", 500, 0.001)
}

func TestRecordJobMetrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, _, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	// Should not panic
	metrics.RecordJobSent(ctx, "main_player_0", false)
	metrics.RecordJobSent(ctx, "main_player_1", true)
	metrics.RecordJobReceived(ctx, "main_player_0", 12.5)
	metrics.RecordGreetingError(ctx)
	metrics.RecordRunningJobs(ctx, 3)
	metrics.RecordTrajectories(ctx, "main_player_0", 32)
}

func TestRecordScalar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	metrics, _, err := NewMetrics(ctx)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	// Repeated records on the same series must reuse the instrument
	metrics.RecordScalar(ctx, "trajectory_rate_current", 4.2, 100)
	metrics.RecordScalar(ctx, "trajectory_rate_current", 5.1, 200)
	metrics.RecordScalar(ctx, "episode count", 7, 200)
}

func TestNormalizeTopic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected string
	}{
		{"actor.greeting", "actor.greeting"},
		{"job.finished", "job.finished"},
		{"learner.meta", "learner.meta"},
		{"job.dispatch.actor-7", "job.dispatch"},
		{"actor.data.main_player_0", "actor.data"},
	}

	for _, tt := range tests {
		result := normalizeTopic(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeTopic(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestSanitizeScalarName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected string
	}{
		{"trajectory_rate_current", "trajectory_rate_current"},
		{"episode count", "episode_count"},
		{"rate/s", "rate_s"},
		{"1st_metric", "scalar_1st_metric"},
		{"", "scalar_unnamed"},
	}

	for _, tt := range tests {
		result := sanitizeScalarName(tt.input)
		if result != tt.expected {
			t.Errorf("sanitizeScalarName(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
