package reactive

// SubscriberFuncs assembles a Subscriber from closures. Nil hooks are
// no-ops; a nil OnNext grants no additional demand.
type SubscriberFuncs[T any] struct {
	Subscribe func(Subscription)
	Next      func(T) Demand
	Complete  func(Completion)
}

// OnSubscribe implements Subscriber.
func (f SubscriberFuncs[T]) OnSubscribe(s Subscription) {
	if f.Subscribe != nil {
		f.Subscribe(s)
	}
}

// OnNext implements Subscriber.
func (f SubscriberFuncs[T]) OnNext(v T) Demand {
	if f.Next == nil {
		return None
	}
	return f.Next(v)
}

// OnComplete implements Subscriber.
func (f SubscriberFuncs[T]) OnComplete(c Completion) {
	if f.Complete != nil {
		f.Complete(c)
	}
}

// SubscriptionFuncs assembles a Subscription from closures.
type SubscriptionFuncs struct {
	RequestFunc func(Demand)
	CancelFunc  func()
}

// Request implements Subscription.
func (f SubscriptionFuncs) Request(n Demand) {
	if f.RequestFunc != nil {
		f.RequestFunc(n)
	}
}

// Cancel implements Subscription.
func (f SubscriptionFuncs) Cancel() {
	if f.CancelFunc != nil {
		f.CancelFunc()
	}
}

// PublisherFunc adapts a subscribe function to Publisher.
type PublisherFunc[T any] func(Subscriber[T])

// Subscribe implements Publisher.
func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) {
	f(s)
}
