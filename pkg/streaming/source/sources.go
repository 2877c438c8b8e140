package source

import (
	"sync"

	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Slice returns a Publisher that emits values in order to each subscriber.
// It finishes as soon as the last value has been delivered, without waiting
// for more demand; an empty slice finishes right after subscribe.
func Slice[T any](values []T) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(s reactive.Subscriber[T]) {
		i := 0
		subscribeIterator(s, func() (T, bool, error) {
			var zero T
			if i >= len(values) {
				return zero, false, nil
			}
			v := values[i]
			i++
			return v, true, nil
		}, func() bool {
			return i >= len(values)
		})
	})
}

// Just returns a Publisher that emits the given values, then finishes.
func Just[T any](values ...T) reactive.Publisher[T] {
	return Slice(values)
}

// Empty returns a Publisher that finishes without emitting.
func Empty[T any]() reactive.Publisher[T] {
	return Slice[T](nil)
}

// Fail returns a Publisher that fails with err as soon as it is subscribed.
// Failures are not demand-accounted, so no request is needed.
func Fail[T any](err error) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(s reactive.Subscriber[T]) {
		s.OnSubscribe(reactive.SubscriptionFuncs{})
		s.OnComplete(reactive.Failure(err))
	})
}

// Generate returns a Publisher that emits generator() for every unit of
// demand and never finishes on its own.
func Generate[T any](generator func() T) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(s reactive.Subscriber[T]) {
		subscribeIterator(s, func() (T, bool, error) {
			return generator(), true, nil
		}, nil)
	})
}

// nextFunc yields the next value. ok is false once the sequence is
// exhausted; a non-nil error fails the stream.
type nextFunc[T any] func() (v T, ok bool, err error)

func subscribeIterator[T any](s reactive.Subscriber[T], next nextFunc[T], exhausted func() bool) {
	sub := &iteratorSubscription[T]{subscriber: s, next: next, exhausted: exhausted}
	s.OnSubscribe(sub)
	sub.Request(reactive.None)
}

// iteratorSubscription emits synchronously from Request. A Request made
// while an emission loop is running, typically from inside OnNext, only
// adds demand; the running loop picks it up, so the stack never grows with
// the number of values.
type iteratorSubscription[T any] struct {
	mu         sync.Mutex
	subscriber reactive.Subscriber[T]
	next       nextFunc[T]
	exhausted  func() bool
	demand     reactive.Demand
	emitting   bool
	canceled   bool
	done       bool
}

func (s *iteratorSubscription[T]) Request(n reactive.Demand) {
	s.mu.Lock()
	if s.canceled || s.done {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(n)
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true

	for !s.canceled {
		if s.exhausted != nil && s.exhausted() {
			s.finishLocked(nil)
			return
		}
		if s.demand.IsZero() {
			break
		}

		s.mu.Unlock()
		v, ok, err := s.next()
		s.mu.Lock()

		if s.canceled {
			break
		}
		if err != nil || !ok {
			s.finishLocked(err)
			return
		}

		s.demand = s.demand.Sub(reactive.Max(1))
		s.mu.Unlock()
		more := s.subscriber.OnNext(v)
		s.mu.Lock()
		s.demand = s.demand.Add(more)
	}

	s.emitting = false
	s.mu.Unlock()
}

func (s *iteratorSubscription[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled = true
}

// finishLocked must be called with s.mu held and returns with it released.
func (s *iteratorSubscription[T]) finishLocked(err error) {
	s.done = true
	s.emitting = false
	s.mu.Unlock()

	if err != nil {
		s.subscriber.OnComplete(reactive.Failure(err))
		return
	}
	s.subscriber.OnComplete(reactive.Finished)
}
