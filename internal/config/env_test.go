package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	if got := GetEnv("TEST_STR", "default"); got != "value" {
		t.Errorf("GetEnv = %q, want %q", got, "value")
	}
	if got := GetEnv("TEST_STR_MISSING", "default"); got != "default" {
		t.Errorf("GetEnv missing = %q, want default", got)
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := GetIntEnv("TEST_INT", 7); got != 42 {
		t.Errorf("GetIntEnv = %d, want 42", got)
	}

	t.Setenv("TEST_INT_BAD", "not-a-number")
	if got := GetIntEnv("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("GetIntEnv invalid = %d, want default 7", got)
	}
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if got := GetDurationEnv("TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("GetDurationEnv = %v, want 90s", got)
	}
	if got := GetDurationEnv("TEST_DUR_MISSING", time.Second); got != time.Second {
		t.Errorf("GetDurationEnv missing = %v, want 1s", got)
	}
}

func TestGetFloatEnv(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.25")
	if got := GetFloatEnv("TEST_FLOAT", 1.0); got != 0.25 {
		t.Errorf("GetFloatEnv = %v, want 0.25", got)
	}
	if got := GetFloatEnv("TEST_FLOAT_MISSING", 1.0); got != 1.0 {
		t.Errorf("GetFloatEnv missing = %v, want 1.0", got)
	}
}

func TestGetSliceEnv(t *testing.T) {
	t.Setenv("TEST_SLICE", "a, b,,c")
	got := GetSliceEnv("TEST_SLICE")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("GetSliceEnv = %v, want [a b c]", got)
	}
	if got := GetSliceEnv("TEST_SLICE_MISSING"); got != nil {
		t.Errorf("GetSliceEnv missing = %v, want nil", got)
	}
}

func TestGetSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  topsecret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := GetSecretFile(path); got != "topsecret" {
		t.Errorf("GetSecretFile = %q, want %q", got, "topsecret")
	}
	if got := GetSecretFile(""); got != "" {
		t.Errorf("GetSecretFile empty path = %q, want empty", got)
	}
	if got := GetSecretFile("/nonexistent/secret"); got != "" {
		t.Errorf("GetSecretFile missing file = %q, want empty", got)
	}
}
