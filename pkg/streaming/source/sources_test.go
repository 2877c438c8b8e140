package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/backflow/internal/testutil"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

func TestSlice_HonorsDemand(t *testing.T) {
	rec := testutil.NewRecorder[int](reactive.Max(2))
	Slice([]int{1, 2, 3}).Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.Empty(t, rec.Completions())

	rec.Request(reactive.Max(1))
	assert.Equal(t, []int{1, 2, 3}, rec.Values())
	c, ok := rec.Completion()
	require.True(t, ok)
	assert.True(t, c.IsFinished())
}

func TestSlice_EachSubscriberStartsOver(t *testing.T) {
	pub := Just("a", "b")

	first := testutil.NewRecorder[string](reactive.Unlimited)
	second := testutil.NewRecorder[string](reactive.Unlimited)
	pub.Subscribe(first)
	pub.Subscribe(second)

	assert.Equal(t, []string{"a", "b"}, first.Values())
	assert.Equal(t, []string{"a", "b"}, second.Values())
}

func TestEmpty_FinishesWithoutDemand(t *testing.T) {
	rec := testutil.NewRecorder[int](reactive.None)
	Empty[int]().Subscribe(rec)

	assert.Empty(t, rec.Values())
	assert.Len(t, rec.Completions(), 1)
}

func TestFail(t *testing.T) {
	boom := errors.New("boom")
	rec := testutil.NewRecorder[int](reactive.None)
	Fail[int](boom).Subscribe(rec)

	c, ok := rec.Completion()
	require.True(t, ok)
	assert.ErrorIs(t, c.Err(), boom)
}

func TestGenerate_ReentrantRequestsDoNotRecurse(t *testing.T) {
	const want = 100000

	n, seen := 0, 0
	rec := testutil.NewRecorder[int](reactive.Max(1))
	rec.WithPolicy(func(int) reactive.Demand {
		seen++
		if seen == want {
			rec.Cancel()
			return reactive.None
		}
		rec.Request(reactive.Max(1))
		return reactive.None
	})

	Generate(func() int {
		n++
		return n
	}).Subscribe(rec)

	values := rec.Values()
	require.Len(t, values, want)
	assert.Equal(t, 1, values[0])
	assert.Equal(t, want, values[want-1])
	assert.Empty(t, rec.Completions())
}

func TestSlice_CancelStopsEmission(t *testing.T) {
	rec := testutil.NewRecorder[int](reactive.Unlimited)
	rec.WithPolicy(func(v int) reactive.Demand {
		if v == 2 {
			rec.Cancel()
		}
		return reactive.None
	})
	Slice([]int{1, 2, 3, 4}).Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Values())
	assert.Empty(t, rec.Completions())
}
