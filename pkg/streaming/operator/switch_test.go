package operator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/backflow/internal/testutil"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
	"github.com/vnykmshr/backflow/pkg/streaming/source"
)

func TestSwitchToLatest_FollowsNewestInner(t *testing.T) {
	outer := testutil.NewManualPublisher[reactive.Publisher[int]]()
	first := testutil.NewManualPublisher[int]()
	second := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(3))

	SwitchToLatest[int](outer).Subscribe(rec)
	assert.Equal(t, []reactive.Demand{reactive.Unlimited}, outer.Requests())

	outer.Send(first)
	assert.Equal(t, []reactive.Demand{reactive.Max(3)}, first.Requests())
	first.Send(1)

	outer.Send(second)
	assert.Equal(t, 1, first.Cancels())
	assert.Equal(t, []reactive.Demand{reactive.Max(2)}, second.Requests(), "unmet demand moves to the new inner")

	first.Send(99)
	second.Send(2)
	assert.Equal(t, []int{1, 2}, rec.Values())

	outer.Complete(reactive.Finished)
	assert.Empty(t, rec.Completions(), "the current inner is still running")

	second.Complete(reactive.Finished)
	c, ok := rec.Completion()
	require.True(t, ok)
	assert.True(t, c.IsFinished())
}

func TestSwitchToLatest_InnerFailureCancelsOuter(t *testing.T) {
	boom := errors.New("boom")
	outer := testutil.NewManualPublisher[reactive.Publisher[int]]()
	rec := testutil.NewRecorder[int](reactive.Max(1))

	SwitchToLatest[int](outer).Subscribe(rec)
	outer.Send(source.Fail[int](boom))

	assert.Equal(t, 1, outer.Cancels())
	c, ok := rec.Completion()
	require.True(t, ok)
	assert.ErrorIs(t, c.Err(), boom)
}

func TestSwitchToLatest_OuterFailureCancelsInner(t *testing.T) {
	outer := testutil.NewManualPublisher[reactive.Publisher[int]]()
	inner := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(1))

	SwitchToLatest[int](outer).Subscribe(rec)
	outer.Send(inner)
	outer.Complete(reactive.Failure(errors.New("outer")))

	assert.Equal(t, 1, inner.Cancels())
	require.Len(t, rec.Completions(), 1)
	assert.EqualError(t, rec.Completions()[0].Err(), "outer")
}

func TestSwitchToLatest_Cancel(t *testing.T) {
	outer := testutil.NewManualPublisher[reactive.Publisher[int]]()
	inner := testutil.NewManualPublisher[int]()
	rec := testutil.NewRecorder[int](reactive.Max(1))

	SwitchToLatest[int](outer).Subscribe(rec)
	outer.Send(inner)
	rec.Cancel()

	assert.Equal(t, 1, outer.Cancels())
	assert.Equal(t, 1, inner.Cancels())

	inner.Send(1)
	assert.Empty(t, rec.Values())
}

func TestSwitchToLatest_EmptyOuterFinishes(t *testing.T) {
	values, err := collect(t, SwitchToLatest(source.Empty[reactive.Publisher[int]]()), 1)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestFlatMapLatest(t *testing.T) {
	values, err := collect(t, FlatMapLatest(source.Just(1, 2, 3), func(n int) reactive.Publisher[int] {
		return source.Just(n, n*10)
	}), 100)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 10, 2, 20, 3, 30}, values)
}

func TestFlatMapLatest_DemandCarriesAcrossInners(t *testing.T) {
	values, err := collect(t, FlatMapLatest(source.Just("a", "b"), func(s string) reactive.Publisher[string] {
		return source.Just(s+"1", s+"2", s+"3")
	}), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2", "b3"}, values)
}
