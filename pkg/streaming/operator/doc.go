// Package operator provides stream operators built on the bridge adapter.
//
// Each operator returns a Publisher; every subscription to it creates one
// bridge.Adapter over the upstream publisher, so operators inherit the
// adapter's guarantees: downstream never receives more values than it
// requested, and a terminal signal waits behind the values it asked for.
//
//	words := operator.Filter(source.Just("go", "", "flow"), func(s string) bool {
//		return s != ""
//	})
//	lengths := operator.Map(words, func(s string) int { return len(s) })
//
// Decode turns raw payloads into typed values and substitutes a fallback
// for payloads that fail to decode instead of failing the stream.
// SwitchToLatest and FlatMapLatest follow only the most recent inner
// publisher, canceling the one it replaces.
//
// Throttle paces demand with a token bucket: values are requested from
// upstream no faster than ThrottleConfig.Rate per second, at most Burst
// at a time.
package operator
