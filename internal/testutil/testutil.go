package testutil

import (
	"context"
	"testing"
	"time"
)

// TestTimeout is the default timeout for tests
const TestTimeout = 5 * time.Second

// WithTimeout creates a context with the default test timeout
func WithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), TestTimeout)
}

// Eventually polls condition every tick until it returns true, failing the
// test if waitFor elapses first.
func Eventually(t *testing.T, condition func() bool, waitFor, tick time.Duration) {
	t.Helper()

	deadline := time.Now().Add(waitFor)
	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", waitFor)
		}
		time.Sleep(tick)
	}
}
