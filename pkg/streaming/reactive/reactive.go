package reactive

// A Publisher is a provider of a potentially unbounded number of sequenced
// values, publishing them according to the demand received from its
// Subscriber.
//
// A Publisher can serve multiple Subscribers; each call to Subscribe starts a
// new, independent Subscription.
type Publisher[T any] interface {
	// Subscribe attaches s. The publisher eventually calls s.OnSubscribe
	// exactly once with the handle s uses to request values or cancel.
	Subscribe(s Subscriber[T])
}

// Subscriber receives a call to OnSubscribe once after being passed to
// Publisher.Subscribe. It then receives at most as many OnNext calls as it
// has demanded, followed by at most one OnComplete.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)

	// OnNext delivers a value and returns how much additional demand the
	// subscriber grants in response (None for no change).
	OnNext(v T) Demand

	OnComplete(c Completion)
}

// Subscription represents the one-to-one lifecycle of a Subscriber
// subscribed to a Publisher.
type Subscription interface {
	// Request adds n to the demand of the subscription.
	Request(n Demand)

	// Cancel stops delivery and releases resources. It is idempotent.
	Cancel()
}

// Cancellable is anything that can be canceled.
type Cancellable interface {
	Cancel()
}

// CancelFunc adapts a function to Cancellable.
type CancelFunc func()

// Cancel calls f.
func (f CancelFunc) Cancel() {
	f()
}

// RequestIfNeeded requests d from s only when d is strictly positive.
func RequestIfNeeded(s Subscription, d Demand) {
	if s == nil || d.IsZero() {
		return
	}
	s.Request(d)
}
