/*
Package backflow provides demand-driven streaming for Go: producers emit only as many values as
their consumers have asked for, and everything in between buffers in order.

Core (pkg/streaming):
  - reactive: Demand, Completion and the Publisher/Subscriber/Subscription contracts
  - demandbuffer: Ordered buffer that releases values only against requested demand
  - bridge: Adapter between an upstream publisher and a downstream subscriber

Building blocks (pkg/streaming):
  - source: Slices, generators, channels, polling fetchers and cron ticks as publishers
  - operator: Map, Filter, Decode, SwitchToLatest, Throttle and friends
  - relay: Current-value relay that replays its latest value to each subscriber
  - redisqueue: Redis lists as publishers and subscribers
  - writer: Buffered io.Writer subscriber

Support (pkg):
  - metrics: Prometheus collectors for buffers, bridges, sources and writers
  - common: Error types, configuration validation and context helpers

Example usage:

	import (
		"github.com/vnykmshr/backflow/pkg/streaming/operator"
		"github.com/vnykmshr/backflow/pkg/streaming/reactive"
		"github.com/vnykmshr/backflow/pkg/streaming/source"
	)

	evens := operator.Filter(source.Just(1, 2, 3, 4), func(n int) bool { return n%2 == 0 })
	values, err := reactive.Collect(ctx, evens, 16) // [2 4]
*/
package backflow
