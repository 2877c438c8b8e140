/*
Package demandbuffer holds produced values for a single subscriber and releases them only as
fast as that subscriber asks for them.

A Buffer sits between code that pushes values and a reactive.Subscriber that pulls them. Every
operation answers one question: how much more should the caller request from upstream right now?

Ledger:

Each Buffer keeps three running totals:
  - Requested: cumulative demand granted by the subscriber
  - Processed: queued values already delivered against Requested
  - Sent: demand already reported back to the caller

After every flush Sent catches up with Requested, so upstream is asked for exactly the net new
demand once, no matter how many times Offer or Demand are called.

Basic Usage:

	buf := demandbuffer.New[int](subscriber)

	// The subscriber asked for two values.
	up := buf.Demand(reactive.Max(2)) // max(2): request two from upstream

	buf.Offer(1) // delivered
	buf.Offer(2) // delivered
	buf.Offer(3) // queued until more demand arrives

	buf.Complete(reactive.Finished) // held until the queue drains against demand

Terminal Signals:

Complete stores the signal and flushes. The subscriber sees it after every value deliverable
under current demand; values still queued beyond that demand are discarded. While the
subscriber has granted nothing at all, the signal waits. Offering or completing after
Complete panics with *errors.ContractError.

Unlimited Demand:

Once the subscriber grants reactive.Unlimited, Offer hands values straight through and returns
whatever the subscriber grants in reply. Nothing is queued.

Re-entrancy and Concurrency:

Subscribers may call back into the Buffer from OnNext, typically to request more. The buffer
never holds its mutex while calling the subscriber. The caller that starts a flush drains the
queue; calls that arrive meanwhile record their effect and return reactive.None, and the
drainer folds their demand into its own result. Offer, Complete and Demand may therefore be
called from any goroutine and the subscriber is never called concurrently.

Cancellation:

Cancel discards queued values and any pending terminal signal. Later calls are ignored, which
lets in-flight upstream values arrive harmlessly after a consumer went away.

Metrics and Logging:

Set Config.Metrics to record offered, delivered and queued values per Config.Name. Config.Logger
receives Debug entries when the buffer terminates or is canceled.
*/
package demandbuffer
