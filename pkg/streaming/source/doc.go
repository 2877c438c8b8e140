/*
Package source provides demand-honoring publishers.

Every publisher in this package emits only as many values as its subscriber has requested.
Each Subscribe starts an independent subscription.

In-Memory Sources:

	source.Slice([]int{1, 2, 3})   // the slice, in order
	source.Just("a", "b")          // the arguments, in order
	source.Empty[int]()            // finishes immediately
	source.Fail[int](err)          // fails immediately
	source.Generate(rand.Int)      // one call per unit of demand, forever

These emit synchronously from Request. A subscriber that requests more from inside OnNext is
served by the loop already running, so arbitrarily long streams do not grow the stack.

Pull Sources:

Pull turns a batch fetch function into a publisher. A goroutine per subscriber, started on the
first request, calls fetch with a limit no larger than the subscriber's unmet demand and
PullConfig.BatchSize:

	users := source.Pull(source.PullConfig{Name: "users", BatchSize: 100},
		func(ctx context.Context, limit int) ([]User, bool, error) {
			page, err := store.NextPage(ctx, limit)
			return page, len(page) == 0, err
		})

Errors that errors.IsRetryable accepts (timeouts, capacity) are retried after PollInterval.
Other errors fail the stream wrapped in *errors.OperationError. An empty batch waits
PollInterval before polling again. Canceling the subscription cancels the context passed to
fetch and stops the goroutine.

Channel wraps a Go channel as a pull source that receives only while there is demand.

Cron Sources:

Cron emits tick times on a robfig/cron schedule. Ticks that fire before the subscriber asks for
them are buffered, so slow consumers see every tick in order:

	ticks := source.Cron(source.CronConfig{
		Expression: "@every 5m",
		MaxRuns:    12,
	})

Expressions accept an optional seconds field and descriptors such as @every 30s. Set Schedule
directly for custom schedules. An invalid expression fails the subscriber with
*errors.ValidationError.
*/
package source
