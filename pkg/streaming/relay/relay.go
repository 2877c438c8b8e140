package relay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Relay is a publisher that values are pushed into with Accept. A relay
// never fails and never completes.
type Relay[T any] interface {
	reactive.Publisher[T]
	Accept(v T)
}

// Config holds configuration for a CurrentValue relay.
type Config struct {
	// Name labels log entries and metrics of every subscriber's buffer.
	Name string

	// Logger receives subscribe and cancel events. Nil means zap.NewNop().
	Logger *zap.Logger

	// Metrics records offered, delivered and queued values.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{Name: "relay"}
}

// CurrentValue holds a current value and publishes it, followed by every
// accepted value, to each subscriber. Every subscriber has its own demand
// buffer: values wait there until that subscriber asks for them, so a slow
// subscriber never holds back the others.
type CurrentValue[T any] struct {
	mu         sync.Mutex
	value      T
	seq        uint64
	pending    []accepted[T]
	publishing bool
	subs       map[*subscription[T]]struct{}

	name     string
	logger   *zap.Logger
	registry *metrics.Registry
}

type accepted[T any] struct {
	seq   uint64
	value T
}

// NewCurrentValue creates a relay holding v.
func NewCurrentValue[T any](v T) *CurrentValue[T] {
	return NewCurrentValueWithConfig(v, DefaultConfig())
}

// NewCurrentValueWithConfig creates a relay holding v.
func NewCurrentValueWithConfig[T any](v T, config Config) *CurrentValue[T] {
	if config.Name == "" {
		config.Name = DefaultConfig().Name
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CurrentValue[T]{
		value:    v,
		subs:     make(map[*subscription[T]]struct{}),
		name:     config.Name,
		logger:   logger,
		registry: config.Metrics,
	}
}

// Value returns the current value.
func (r *CurrentValue[T]) Value() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Subscribers returns the number of live subscriptions.
func (r *CurrentValue[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Accept makes v the current value and offers it to every subscriber.
// Accept may be called from any goroutine, including from a subscriber's
// OnNext; each subscriber sees accepted values in the order Accept was
// called.
func (r *CurrentValue[T]) Accept(v T) {
	r.mu.Lock()
	r.value = v
	r.seq++
	r.pending = append(r.pending, accepted[T]{seq: r.seq, value: v})
	if r.publishing {
		r.mu.Unlock()
		return
	}
	r.publishing = true

	for len(r.pending) > 0 {
		next := r.pending[0]
		r.pending = r.pending[1:]

		targets := make([]*subscription[T], 0, len(r.subs))
		for s := range r.subs {
			// Subscribers that joined after next was accepted already
			// started from a newer value.
			if s.joined < next.seq {
				targets = append(targets, s)
			}
		}
		r.mu.Unlock()

		for _, s := range targets {
			s.buffer.Offer(next.value)
		}

		r.mu.Lock()
	}

	r.pending = nil
	r.publishing = false
	r.mu.Unlock()
}

// Subscribe attaches s. The current value is the first value s receives,
// once it requests one.
func (r *CurrentValue[T]) Subscribe(s reactive.Subscriber[T]) {
	sub := &subscription[T]{
		relay: r,
		buffer: demandbuffer.NewWithConfig(s, demandbuffer.Config{
			Name:    r.name,
			Logger:  r.logger,
			Metrics: r.registry,
		}),
	}

	r.mu.Lock()
	sub.joined = r.seq
	r.subs[sub] = struct{}{}
	// Without demand the buffer only queues, so offering under the lock
	// never calls out.
	sub.buffer.Offer(r.value)
	r.mu.Unlock()

	r.logger.Debug("relay subscriber attached", zap.String("relay", r.name))
	s.OnSubscribe(sub)
}

func (r *CurrentValue[T]) remove(s *subscription[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[s]; !ok {
		return false
	}
	delete(r.subs, s)
	return true
}

type subscription[T any] struct {
	relay  *CurrentValue[T]
	buffer *demandbuffer.Buffer[T]
	joined uint64
}

func (s *subscription[T]) Request(n reactive.Demand) {
	// A relay is pushed into, so there is no upstream to ask.
	s.buffer.Demand(n)
}

func (s *subscription[T]) Cancel() {
	if !s.relay.remove(s) {
		return
	}
	s.buffer.Cancel()
	s.relay.logger.Debug("relay subscriber canceled", zap.String("relay", s.relay.name))
}

// Bind subscribes to pub with unlimited demand and accepts every value into
// r. Cancel the result to stop forwarding.
func Bind[T any](pub reactive.Publisher[T], r Relay[T]) reactive.Cancellable {
	return reactive.Sink(pub, r.Accept, nil)
}
