package operator

import (
	"sync"

	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// SwitchToLatest flattens a stream of publishers by always following the
// most recent one. Each new inner publisher cancels the previous one and
// inherits whatever downstream demand it left unmet. The result finishes
// once the outer stream and the current inner stream have both finished;
// a failure from either cancels the other and fails downstream.
func SwitchToLatest[T any](outer reactive.Publisher[reactive.Publisher[T]]) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(downstream reactive.Subscriber[T]) {
		sw := &switcher[T]{}
		sw.buffer = demandbuffer.NewWithConfig(downstream, demandbuffer.Config{Name: "switch_to_latest"})
		downstream.OnSubscribe(sw)
		outer.Subscribe(sw)
	})
}

// FlatMapLatest maps every value to a publisher and follows only the most
// recent one.
func FlatMapLatest[In, Out any](pub reactive.Publisher[In], fn func(In) reactive.Publisher[Out]) reactive.Publisher[Out] {
	return SwitchToLatest(Map(pub, fn))
}

// switcher is the outer subscriber and the downstream subscription at once.
type switcher[T any] struct {
	mu          sync.Mutex
	outer       reactive.Subscription
	inner       *innerSubscriber[T]
	generation  uint64
	outstanding reactive.Demand
	outerDone   bool
	terminated  bool
	canceled    bool

	buffer *demandbuffer.Buffer[T]
}

func (s *switcher[T]) OnSubscribe(h reactive.Subscription) {
	s.mu.Lock()
	if s.outer != nil || s.canceled || s.terminated {
		s.mu.Unlock()
		h.Cancel()
		return
	}
	s.outer = h
	s.mu.Unlock()

	h.Request(reactive.Unlimited)
}

func (s *switcher[T]) OnNext(pub reactive.Publisher[T]) reactive.Demand {
	s.mu.Lock()
	if s.canceled || s.terminated {
		s.mu.Unlock()
		return reactive.None
	}
	s.generation++
	prev := s.inner
	next := &innerSubscriber[T]{parent: s, generation: s.generation}
	s.inner = next
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	pub.Subscribe(next)
	return reactive.None
}

func (s *switcher[T]) OnComplete(c reactive.Completion) {
	s.mu.Lock()
	s.outer = nil
	if s.canceled || s.terminated {
		s.mu.Unlock()
		return
	}
	if !c.IsFinished() {
		s.failLocked(c)
		return
	}
	s.outerDone = true
	if s.inner != nil {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.mu.Unlock()

	s.buffer.Complete(reactive.Finished)
}

func (s *switcher[T]) Request(n reactive.Demand) {
	more := s.buffer.Demand(n)
	if more.IsZero() {
		return
	}

	s.mu.Lock()
	if s.canceled || s.terminated {
		s.mu.Unlock()
		return
	}
	s.outstanding = s.outstanding.Add(more)
	var h reactive.Subscription
	if s.inner != nil {
		h = s.inner.handle()
	}
	s.mu.Unlock()

	if h != nil {
		h.Request(more)
	}
}

func (s *switcher[T]) Cancel() {
	s.mu.Lock()
	if s.canceled {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	outer, inner := s.outer, s.inner
	s.outer, s.inner = nil, nil
	s.mu.Unlock()

	if outer != nil {
		outer.Cancel()
	}
	if inner != nil {
		inner.cancel()
	}
	s.buffer.Cancel()
}

// failLocked cancels everything still running and fails downstream. It must
// be called with s.mu held and returns with it released.
func (s *switcher[T]) failLocked(c reactive.Completion) {
	s.terminated = true
	outer, inner := s.outer, s.inner
	s.outer, s.inner = nil, nil
	s.mu.Unlock()

	if outer != nil {
		outer.Cancel()
	}
	if inner != nil {
		inner.cancel()
	}
	s.buffer.Complete(c)
}

type innerSubscriber[T any] struct {
	parent     *switcher[T]
	generation uint64

	mu       sync.Mutex
	sub      reactive.Subscription
	canceled bool
}

func (i *innerSubscriber[T]) handle() reactive.Subscription {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sub
}

func (i *innerSubscriber[T]) cancel() {
	i.mu.Lock()
	if i.canceled {
		i.mu.Unlock()
		return
	}
	i.canceled = true
	h := i.sub
	i.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}

// currentLocked reports whether i is still the inner being followed. The
// parent's mutex must be held.
func (i *innerSubscriber[T]) currentLocked() bool {
	s := i.parent
	return s.inner == i && !s.canceled && !s.terminated
}

func (i *innerSubscriber[T]) OnSubscribe(h reactive.Subscription) {
	s := i.parent
	s.mu.Lock()
	i.mu.Lock()
	if !i.currentLocked() || i.canceled || i.sub != nil {
		i.mu.Unlock()
		s.mu.Unlock()
		h.Cancel()
		return
	}
	i.sub = h
	owed := s.outstanding
	i.mu.Unlock()
	s.mu.Unlock()

	reactive.RequestIfNeeded(h, owed)
}

func (i *innerSubscriber[T]) OnNext(v T) reactive.Demand {
	s := i.parent
	s.mu.Lock()
	if !i.currentLocked() {
		s.mu.Unlock()
		return reactive.None
	}
	s.outstanding = s.outstanding.Sub(reactive.Max(1))
	s.mu.Unlock()

	more := s.buffer.Offer(v)
	if more.IsZero() {
		return reactive.None
	}

	s.mu.Lock()
	if s.canceled || s.terminated {
		s.mu.Unlock()
		return reactive.None
	}
	s.outstanding = s.outstanding.Add(more)
	if i.currentLocked() {
		s.mu.Unlock()
		return more
	}
	// A newer inner took over while this value was delivered; it owes the
	// new demand now.
	var h reactive.Subscription
	if s.inner != nil {
		h = s.inner.handle()
	}
	s.mu.Unlock()

	if h != nil {
		h.Request(more)
	}
	return reactive.None
}

func (i *innerSubscriber[T]) OnComplete(c reactive.Completion) {
	s := i.parent
	s.mu.Lock()
	if !i.currentLocked() {
		s.mu.Unlock()
		return
	}
	if !c.IsFinished() {
		s.inner = nil
		s.failLocked(c)
		return
	}
	s.inner = nil
	if !s.outerDone {
		s.mu.Unlock()
		return
	}
	s.terminated = true
	s.mu.Unlock()

	s.buffer.Complete(reactive.Finished)
}
