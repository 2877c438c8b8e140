// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that different components work together correctly in realistic scenarios.
package integration

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/backflow/internal/testutil"
	"github.com/vnykmshr/backflow/pkg/streaming/operator"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
	"github.com/vnykmshr/backflow/pkg/streaming/redisqueue"
	"github.com/vnykmshr/backflow/pkg/streaming/relay"
	"github.com/vnykmshr/backflow/pkg/streaming/source"
	"github.com/vnykmshr/backflow/pkg/streaming/writer"
)

// TestSourceThroughOperatorsToWriter tests the complete streaming pipeline:
// Source -> Filter -> Map -> Writer, verifying data flows in order.
func TestSourceThroughOperatorsToWriter(t *testing.T) {
	underlying := testutil.NewMockWriter()
	w, err := writer.NewWithConfig(underlying, writer.Config{BatchSize: 2})
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	evens := operator.Filter(source.Slice([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}), func(x int) bool {
		return x%2 == 0
	})
	lines := operator.Map(evens, func(x int) []byte {
		return []byte(strconv.Itoa(x*2) + "\n")
	})
	lines.Subscribe(w)

	select {
	case <-w.Done():
	case <-time.After(testutil.TestTimeout):
		t.Fatal("writer did not finish")
	}

	if err := w.Err(); err != nil {
		t.Fatalf("writer failed: %v", err)
	}

	expected := "4\n8\n12\n16\n20\n"
	if written := underlying.String(); written != expected {
		t.Errorf("written = %q, want %q", written, expected)
	}

	if stats := w.Stats(); stats.WriteCount != 5 {
		t.Errorf("WriteCount = %d, want 5", stats.WriteCount)
	}
}

// TestRedisQueueThroughThrottle moves a Redis list through a paced pipeline
// into a second list.
func TestRedisQueueThroughThrottle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	for i := 1; i <= 20; i++ {
		if _, err := mr.Push("in", fmt.Sprintf("job-%02d", i)); err != nil {
			t.Fatalf("failed to seed list: %v", err)
		}
	}

	inCfg := redisqueue.DefaultConfig()
	inCfg.Client = client
	inCfg.Key = "in"
	inCfg.BatchSize = 4
	inCfg.StopWhenEmpty = true
	pub, err := redisqueue.NewPublisher(inCfg)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	outCfg := redisqueue.DefaultConfig()
	outCfg.Client = client
	outCfg.Key = "out"
	outCfg.BatchSize = 3
	sub, err := redisqueue.NewSubscriber(outCfg)
	if err != nil {
		t.Fatalf("failed to create subscriber: %v", err)
	}

	operator.Throttle(pub, operator.ThrottleConfig{Rate: 2000, Burst: 5}).Subscribe(sub)

	select {
	case <-sub.Done():
	case <-time.After(testutil.TestTimeout):
		t.Fatal("pipeline did not finish")
	}
	if err := sub.Err(); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	out, err := mr.List("out")
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if len(out) != 20 {
		t.Fatalf("moved %d jobs, want 20", len(out))
	}
	for i, v := range out {
		if want := fmt.Sprintf("job-%02d", i+1); v != want {
			t.Errorf("out[%d] = %q, want %q", i, v, want)
		}
	}
	if mr.Exists("in") {
		t.Error("input list should be drained")
	}
}

// TestPullSourceHonorsDemandThroughOperators verifies that demand set by the
// final subscriber bounds what the source fetches, across two adapters.
func TestPullSourceHonorsDemandThroughOperators(t *testing.T) {
	var mu sync.Mutex
	fetched := 0

	numbers := source.Pull(source.PullConfig{BatchSize: 100, PollInterval: time.Millisecond},
		func(ctx context.Context, limit int) ([]int, bool, error) {
			mu.Lock()
			defer mu.Unlock()
			batch := make([]int, limit)
			for i := range batch {
				fetched++
				batch[i] = fetched
			}
			return batch, false, nil
		})

	squares := operator.Map(operator.Map(numbers, func(n int) int { return n * n }), strconv.Itoa)

	rec := testutil.NewRecorder[string](reactive.Max(5))
	squares.Subscribe(rec)
	defer rec.Cancel()

	testutil.Eventually(t, func() bool { return len(rec.Values()) == 5 }, testutil.TestTimeout, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	total := fetched
	mu.Unlock()
	if total != 5 {
		t.Errorf("fetched = %d, want 5", total)
	}

	got := rec.Values()
	want := []string{"1", "4", "9", "16", "25"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("values[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

// TestRelayDrivesSwitchToLatest follows a current-value relay with
// FlatMapLatest so each new relay value replaces the inner stream.
func TestRelayDrivesSwitchToLatest(t *testing.T) {
	mode := relay.NewCurrentValue("a")

	items := operator.FlatMapLatest[string, string](mode, func(prefix string) reactive.Publisher[string] {
		return source.Just(prefix+"1", prefix+"2")
	})

	rec := testutil.NewRecorder[string](reactive.Unlimited)
	items.Subscribe(rec)
	defer rec.Cancel()

	testutil.Eventually(t, func() bool { return len(rec.Values()) == 2 }, testutil.TestTimeout, time.Millisecond)

	mode.Accept("b")
	testutil.Eventually(t, func() bool { return len(rec.Values()) == 4 }, testutil.TestTimeout, time.Millisecond)

	got := rec.Values()
	want := []string{"a1", "a2", "b1", "b2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("values[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if len(rec.Completions()) != 0 {
		t.Errorf("relay-driven stream completed: %v", rec.Completions())
	}
}

// TestCancelReachesSource verifies that canceling at the end of a chain
// cancels the source exactly once.
func TestCancelReachesSource(t *testing.T) {
	pub := testutil.NewManualPublisher[int]()

	chain := operator.Throttle(
		operator.Filter(operator.Map[int, int](pub, func(n int) int { return n + 1 }), func(n int) bool { return n > 0 }),
		operator.ThrottleConfig{Rate: 1000})

	rec := testutil.NewRecorder[int](reactive.Max(1))
	chain.Subscribe(rec)
	rec.Cancel()

	if got := pub.Cancels(); got != 1 {
		t.Errorf("source cancels = %d, want 1", got)
	}
}
