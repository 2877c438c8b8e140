package operator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/backflow/internal/testutil"
	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
	"github.com/vnykmshr/backflow/pkg/streaming/source"
)

func requested(pub *testutil.ManualPublisher[int]) reactive.Demand {
	total := reactive.None
	for _, r := range pub.Requests() {
		total = total.Add(r)
	}
	return total
}

func TestThrottle_DeliversInOrder(t *testing.T) {
	values, err := collect(t, Throttle(source.Just(1, 2, 3, 4, 5), ThrottleConfig{Rate: 1000, Burst: 2}), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, values)
}

func TestThrottle_PacesUpstream(t *testing.T) {
	start := time.Now()
	values, err := collect(t, Throttle(source.Just(1, 2, 3, 4, 5, 6), ThrottleConfig{Rate: 100}), 10)
	require.NoError(t, err)

	assert.Len(t, values, 6)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestThrottle_NeverExceedsDownstreamDemand(t *testing.T) {
	pub := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(3))
	Throttle[int](pub, ThrottleConfig{Rate: 1e6, Burst: 10}).Subscribe(rec)
	defer rec.Cancel()

	require.Eventually(t, func() bool { return requested(pub) == reactive.Max(3) }, testutil.TestTimeout, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reactive.Max(3), requested(pub))

	rec.Request(reactive.Max(2))
	require.Eventually(t, func() bool { return requested(pub) == reactive.Max(5) }, testutil.TestTimeout, time.Millisecond)
}

func TestThrottle_BurstCapsEachRequest(t *testing.T) {
	pub := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Unlimited)
	Throttle[int](pub, ThrottleConfig{Rate: 1000, Burst: 4}).Subscribe(rec)

	require.Eventually(t, func() bool { return len(pub.Requests()) >= 3 }, testutil.TestTimeout, time.Millisecond)
	rec.Cancel()

	for _, r := range pub.Requests() {
		assert.False(t, reactive.Max(4).Less(r), "request %v exceeds burst", r)
	}
	assert.Equal(t, 1, pub.Cancels())
}

func TestThrottle_DemandFromValuesIsPaced(t *testing.T) {
	pub := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(1)).WithPolicy(func(int) reactive.Demand {
		return reactive.Max(1)
	})
	Throttle[int](pub, ThrottleConfig{Rate: 1e6}).Subscribe(rec)
	defer rec.Cancel()

	require.Eventually(t, func() bool { return requested(pub) == reactive.Max(1) }, testutil.TestTimeout, time.Millisecond)
	assert.Equal(t, reactive.None, pub.Send(1), "demand returned by downstream is granted asynchronously")
	require.Eventually(t, func() bool { return requested(pub) == reactive.Max(2) }, testutil.TestTimeout, time.Millisecond)
	assert.Equal(t, []int{1}, rec.Values())
}

func TestThrottle_ForwardsFailure(t *testing.T) {
	boom := errors.New("boom")
	pub := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(1))
	Throttle[int](pub, ThrottleConfig{Rate: 10}).Subscribe(rec)

	pub.Complete(reactive.Failure(boom))

	c, ok := rec.Completion()
	require.True(t, ok)
	assert.ErrorIs(t, c.Err(), boom)

	rec.Request(reactive.Max(5))
	pub.Complete(reactive.Finished)
	assert.Len(t, rec.Completions(), 1)
}

func TestThrottle_Cancel(t *testing.T) {
	pub := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.None)
	Throttle[int](pub, ThrottleConfig{Rate: 10}).Subscribe(rec)

	rec.Cancel()
	rec.Cancel()
	assert.Equal(t, 1, pub.Cancels())

	rec.Request(reactive.Max(1))
	time.Sleep(5 * time.Millisecond)
	assert.Empty(t, pub.Requests())
}

func TestThrottle_InvalidConfig(t *testing.T) {
	for name, config := range map[string]ThrottleConfig{
		"zero rate":      {},
		"negative rate":  {Rate: -1},
		"negative burst": {Rate: 1, Burst: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := collect(t, Throttle(source.Just(1), config), 1)
			assert.True(t, bferrors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestTokenBucket(t *testing.T) {
	now := time.Now()
	tb := newTokenBucket(10, 3, now)

	n, wait := tb.take(now, 5)
	assert.Equal(t, int64(3), n)
	assert.Zero(t, wait)

	n, wait = tb.take(now, 1)
	assert.Zero(t, n)
	assert.Equal(t, 100*time.Millisecond, wait)

	n, _ = tb.take(now.Add(250*time.Millisecond), 5)
	assert.Equal(t, int64(2), n)

	n, _ = tb.take(now.Add(10*time.Second), 1)
	assert.Equal(t, int64(1), n)
	assert.InDelta(t, 2.0, tb.tokens, 1e-9, "refill is capped at burst")
}
