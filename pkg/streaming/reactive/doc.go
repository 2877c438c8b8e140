/*
Package reactive defines the pull-based streaming protocol shared by every backflow package.

A Publisher produces values for any number of Subscribers. Each subscription is one-to-one:
the publisher hands the subscriber a Subscription, the subscriber requests Demand through it,
and the publisher delivers at most that many values through OnNext followed by at most one
OnComplete.

Demand:

Demand is either a finite, non-negative count or Unlimited. It is a value type; the zero value
is None.

	reactive.None          // nothing
	reactive.Max(10)       // ten values
	reactive.Unlimited     // everything

Unlimited absorbs addition and is greater than every finite demand. Finite addition saturates
instead of overflowing, and subtraction never goes below None. Max panics on a negative count.

A subscriber can grant more demand in two ways: by calling Subscription.Request, or by returning
a non-zero Demand from OnNext. The second form is cheaper and is what most subscribers use.

Completion:

OnComplete receives either Finished or Failure(err). Failures carry ordinary Go errors, so
callers inspect them with errors.Is and errors.As:

	func (s *mySubscriber) OnComplete(c reactive.Completion) {
		if err := c.Err(); err != nil {
			log.Printf("stream failed: %v", err)
		}
	}

Contract violations, such as Failure(nil) or negative demand, panic with
*errors.ContractError. They never travel as completions.

Adapters:

SubscriberFuncs, SubscriptionFuncs and PublisherFunc build protocol values from closures, which
keeps tests and small operators short. RequestIfNeeded skips zero requests.

Consuming Streams:

Sink subscribes with Unlimited demand and calls back for every value. Collect requests values in
batches and blocks until the stream completes or the context is done:

	values, err := reactive.Collect(ctx, publisher, 16)
*/
package reactive
