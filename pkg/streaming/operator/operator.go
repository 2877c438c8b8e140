package operator

import (
	"github.com/vnykmshr/backflow/pkg/streaming/bridge"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Map converts every value with fn.
func Map[In, Out any](pub reactive.Publisher[In], fn func(In) Out) reactive.Publisher[Out] {
	return bridge.Lift(pub, bridge.Config[In, Out]{
		Name: "map",
		Transform: func(v In) (Out, bool) {
			return fn(v), true
		},
		TransformError: bridge.PassError,
	})
}

// Filter forwards only values for which keep returns true. Rejected values
// are replaced upstream, so they never eat into downstream demand.
func Filter[T any](pub reactive.Publisher[T], keep func(T) bool) reactive.Publisher[T] {
	return bridge.Lift(pub, bridge.Config[T, T]{
		Name: "filter",
		Transform: func(v T) (T, bool) {
			return v, keep(v)
		},
		TransformError:   bridge.PassError,
		ReplenishDropped: true,
	})
}

// CompactMap converts values with fn and drops those for which fn returns
// false.
func CompactMap[In, Out any](pub reactive.Publisher[In], fn func(In) (Out, bool)) reactive.Publisher[Out] {
	return bridge.Lift(pub, bridge.Config[In, Out]{
		Name:             "compact_map",
		Transform:        fn,
		TransformError:   bridge.PassError,
		ReplenishDropped: true,
	})
}

// MapError converts a failure with fn. Values pass through unchanged.
func MapError[T any](pub reactive.Publisher[T], fn func(error) error) reactive.Publisher[T] {
	return bridge.Lift(pub, bridge.Config[T, T]{
		Name:      "map_error",
		Transform: bridge.Identity[T](),
		TransformError: func(err error) (error, bool) {
			return fn(err), true
		},
	})
}

// ReplaceError converts a failure with fn, or swallows it when fn returns
// false. A swallowed failure ends the stream without any terminal signal
// reaching downstream.
func ReplaceError[T any](pub reactive.Publisher[T], fn func(error) (error, bool)) reactive.Publisher[T] {
	return bridge.Lift(pub, bridge.Config[T, T]{
		Name:           "replace_error",
		Transform:      bridge.Identity[T](),
		TransformError: fn,
	})
}

// IgnoreError swallows every failure.
func IgnoreError[T any](pub reactive.Publisher[T]) reactive.Publisher[T] {
	return ReplaceError(pub, func(error) (error, bool) { return nil, false })
}
