package testutil

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitFor_ConditionMet(t *testing.T) {
	t.Parallel()
	var flag atomic.Bool
	go func() {
		time.Sleep(20 * time.Millisecond)
		flag.Store(true)
	}()

	if !WaitFor(t, flag.Load, WithTimeout(time.Second)) {
		t.Error("expected condition to be met")
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	t.Parallel()
	start := time.Now()
	met := WaitFor(t, func() bool { return false },
		WithTimeout(50*time.Millisecond), WithInterval(5*time.Millisecond))

	if met {
		t.Error("expected timeout")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, before the timeout", elapsed)
	}
}

func TestWaitForCount(t *testing.T) {
	t.Parallel()
	var counter atomic.Int64
	go func() {
		for i := 0; i < 5; i++ {
			time.Sleep(5 * time.Millisecond)
			counter.Add(1)
		}
	}()

	if !WaitForCount(t, &counter, 5, WithTimeout(time.Second)) {
		t.Errorf("expected counter to reach 5, got %d", counter.Load())
	}
}
