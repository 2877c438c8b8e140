package reactive

import (
	"context"
	"sync"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
)

// Sink subscribes to pub with unlimited demand, calling onNext for every
// value and onComplete once at the end. Either callback may be nil. The
// returned Cancellable detaches the sink.
func Sink[T any](pub Publisher[T], onNext func(T), onComplete func(Completion)) Cancellable {
	s := &sink[T]{onNext: onNext, onComplete: onComplete}
	pub.Subscribe(s)
	return CancelFunc(s.cancel)
}

type sink[T any] struct {
	mu         sync.Mutex
	sub        Subscription
	canceled   bool
	done       bool
	onNext     func(T)
	onComplete func(Completion)
}

func (s *sink[T]) OnSubscribe(sub Subscription) {
	s.mu.Lock()
	if s.sub != nil || s.canceled {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	sub.Request(Unlimited)
}

func (s *sink[T]) OnNext(v T) Demand {
	s.mu.Lock()
	skip := s.canceled || s.done
	s.mu.Unlock()

	if !skip && s.onNext != nil {
		s.onNext(v)
	}
	return None
}

func (s *sink[T]) OnComplete(c Completion) {
	s.mu.Lock()
	if s.canceled || s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.sub = nil
	s.mu.Unlock()

	if s.onComplete != nil {
		s.onComplete(c)
	}
}

func (s *sink[T]) cancel() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Collect subscribes to pub, requesting batch values at a time, and blocks
// until the stream completes or ctx is done. A failure completion is
// returned as the error together with the values received before it. When
// ctx ends first the subscription is canceled and ctx.Err() is returned.
func Collect[T any](ctx context.Context, pub Publisher[T], batch int64) ([]T, error) {
	if batch <= 0 {
		return nil, bferrors.NewValidationError("reactive", "batch", batch, "must be positive").
			WithHint("request at least one value per batch")
	}

	c := &collector[T]{
		batch: batch,
		done:  make(chan struct{}),
	}
	pub.Subscribe(c)

	select {
	case <-c.done:
	case <-ctx.Done():
		c.mu.Lock()
		sub := c.sub
		c.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		return c.snapshot(), ctx.Err()
	}

	return c.snapshot(), c.completion.Err()
}

type collector[T any] struct {
	mu         sync.Mutex
	sub        Subscription
	values     []T
	batch      int64
	received   int64
	completion Completion
	once       sync.Once
	done       chan struct{}
}

func (c *collector[T]) OnSubscribe(s Subscription) {
	c.mu.Lock()
	c.sub = s
	c.mu.Unlock()

	s.Request(Max(c.batch))
}

func (c *collector[T]) OnNext(v T) Demand {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = append(c.values, v)
	c.received++
	if c.received%c.batch == 0 {
		return Max(c.batch)
	}
	return None
}

func (c *collector[T]) OnComplete(comp Completion) {
	c.once.Do(func() {
		c.mu.Lock()
		c.completion = comp
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, len(c.values))
	copy(out, c.values)
	return out
}
