/*
Package bridge connects a publisher to a subscriber whose value and error types may differ,
without ever delivering more values than the subscriber asked for.

An Adapter plays both sides of the protocol. Upstream sees it as a reactive.Subscriber;
downstream sees it as the reactive.Subscription it requests through. In between sits a
demandbuffer.Buffer that queues values until downstream has demand for them and holds the
terminal signal back until the values already asked for have been delivered.

Basic Usage:

	adapter := bridge.Attach[int, string](numbers, subscriber, bridge.Config[int, string]{
		Transform: func(n int) (string, bool) {
			return strconv.Itoa(n), true
		},
		TransformError: bridge.PassError,
	})

	// Later, when the subscriber is no longer interested:
	adapter.Cancel()

Attach subscribes the adapter to upstream and then hands it to downstream through OnSubscribe.
New does only the first half, for callers that hand out the subscription themselves. Lift wraps
the whole thing as a Publisher, creating a fresh adapter per subscriber; operators are built on it.

Transforms:

Transform returns false to drop a value. A dropped value never reaches downstream and reports no
new demand upstream, so a filter fed with exactly as much demand as downstream asked for can
stall. Set ReplenishDropped to grant upstream one more value per drop instead; the filtering
operators do.
TransformError returns false to swallow a failure: the subscriber then never receives a terminal
signal. Use Identity and PassError, or DefaultConfig, when no conversion is needed.

Receiving a value without a Transform, or a failure without a TransformError, is a programming
error and panics with *errors.ContractError.

Demand Flow:

When downstream calls Request, the adapter records the demand in its buffer, which delivers any
queued values and reports how much is still owed upstream. Only a positive amount is requested
from the upstream handle. Demand requested before upstream delivered its handle is accumulated
and requested as soon as the handle arrives. Demand granted by the subscriber from inside
OnNext is returned to upstream as the result of the adapter's own OnNext.

Teardown:

Cancel is idempotent. It cancels the upstream handle, discards buffered values and drops any
pending terminal signal. Set Config.Context to tie an adapter to a request or worker lifetime:

	cfg := bridge.DefaultConfig[Event]()
	cfg.Context = ctx // the adapter cancels itself when ctx is done
	bridge.Attach(events, subscriber, cfg)

The upstream handle is released once upstream terminates, so canceling a finished adapter never
reaches the producer. An adapter keeps the first handle it receives and cancels any later ones.

Metrics:

With Config.Metrics set the adapter records finite demand requested upstream, unlimited
requests, dropped values, completions by kind (finished, failure, swallowed) and
cancellations, all labeled with Config.Name.
*/
package bridge
