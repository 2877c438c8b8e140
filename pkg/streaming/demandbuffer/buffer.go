package demandbuffer

import (
	"sync"

	"go.uber.org/zap"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Config holds configuration for a Buffer.
type Config struct {
	// Name labels log entries and metrics.
	Name string

	// Logger receives lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger

	// Metrics records offered, delivered and queued values. Nil disables metrics.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Name: "buffer",
	}
}

// Stats is a snapshot of a Buffer's ledger.
type Stats struct {
	// Requested is the cumulative demand granted by the subscriber.
	Requested reactive.Demand

	// Processed is the number of queued values delivered against Requested.
	Processed reactive.Demand

	// Sent is the demand already reported to the caller for upstream requests.
	Sent reactive.Demand

	// Queued is the number of values waiting for demand.
	Queued int

	// Delivered counts every value handed to the subscriber, including
	// values that bypassed the queue under unlimited demand.
	Delivered int64

	// Terminated is true once the terminal signal has been delivered.
	Terminated bool

	// Canceled is true once Cancel has been called.
	Canceled bool
}

// Buffer holds values for exactly one subscriber and releases them only as
// the subscriber's demand allows. Each operation answers how much additional
// demand the caller should request from upstream.
//
// A single mutex guards the queue, the ledger and the terminal slot, but the
// subscriber is always called with the mutex released. Whoever starts a flush
// becomes the drainer; calls arriving while a drain is running, including
// re-entrant calls from the subscriber's own OnNext, record their effect and
// return None, and the drainer folds that effect into the demand it returns.
// The subscriber is therefore never called concurrently.
type Buffer[T any] struct {
	mu         sync.Mutex
	subscriber reactive.Subscriber[T]
	queue      ring[T]

	requested reactive.Demand
	processed reactive.Demand
	sent      reactive.Demand

	completion *reactive.Completion
	draining   bool
	terminated bool
	canceled   bool
	delivered  int64

	name     string
	logger   *zap.Logger
	registry *metrics.Registry
}

// New creates a Buffer bound to subscriber with default configuration.
func New[T any](subscriber reactive.Subscriber[T]) *Buffer[T] {
	return NewWithConfig(subscriber, DefaultConfig())
}

// NewWithConfig creates a Buffer bound to subscriber.
func NewWithConfig[T any](subscriber reactive.Subscriber[T], config Config) *Buffer[T] {
	if config.Name == "" {
		config.Name = DefaultConfig().Name
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Buffer[T]{
		subscriber: subscriber,
		name:       config.Name,
		logger:     logger,
		registry:   config.Metrics,
	}
}

// Offer hands v to the subscriber if demand allows, otherwise queues it. It
// returns the additional demand to request from upstream.
//
// Offering after Complete is a contract violation and panics. Offering after
// Cancel is ignored.
func (b *Buffer[T]) Offer(v T) reactive.Demand {
	b.mu.Lock()
	if b.canceled {
		b.mu.Unlock()
		return reactive.None
	}
	if b.completion != nil || b.terminated {
		b.mu.Unlock()
		panic(bferrors.NewContractError("demandbuffer", "Offer", "terminal signal already set"))
	}
	if b.registry != nil {
		b.registry.BufferOffered.WithLabelValues(b.name).Inc()
	}

	// Unlimited demand cannot be over-delivered: skip the queue and the
	// ledger unless another drain owns the subscriber right now.
	if b.requested.IsUnlimited() && !b.draining && b.queue.len() == 0 {
		b.draining = true
		b.mu.Unlock()

		more := b.deliver(v)

		b.mu.Lock()
		b.requested = b.requested.Add(more)
		return more.Add(b.drainLocked())
	}

	b.queue.push(v)
	b.observeQueueLocked()
	return b.flushLocked(reactive.None)
}

// Complete stores the terminal signal and flushes. The signal reaches the
// subscriber after the values deliverable under current demand; values
// still queued beyond that demand are discarded. While no demand has been
// granted at all the signal is held until some is.
//
// Completing twice is a contract violation and panics. Completing after
// Cancel is ignored.
func (b *Buffer[T]) Complete(c reactive.Completion) {
	b.mu.Lock()
	if b.canceled {
		b.mu.Unlock()
		return
	}
	if b.completion != nil || b.terminated {
		b.mu.Unlock()
		panic(bferrors.NewContractError("demandbuffer", "Complete", "terminal signal already set"))
	}
	b.completion = &c
	_ = b.flushLocked(reactive.None)
}

// Demand records n more demand from the subscriber, drains what it can and
// returns the additional demand to request from upstream.
func (b *Buffer[T]) Demand(n reactive.Demand) reactive.Demand {
	b.mu.Lock()
	if b.terminated || b.canceled {
		b.mu.Unlock()
		return reactive.None
	}
	return b.flushLocked(n)
}

// Cancel discards queued values and any pending terminal signal without
// delivering them. Later calls become no-ops.
func (b *Buffer[T]) Cancel() {
	b.mu.Lock()
	if b.canceled {
		b.mu.Unlock()
		return
	}
	b.canceled = true
	dropped := b.queue.len()
	b.resetLocked()
	b.mu.Unlock()

	b.logger.Debug("demand buffer canceled",
		zap.String("stream", b.name),
		zap.Int("discarded", dropped))
}

// Len returns the number of queued values.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// Stats returns a snapshot of the ledger.
func (b *Buffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Requested:  b.requested,
		Processed:  b.processed,
		Sent:       b.sent,
		Queued:     b.queue.len(),
		Delivered:  b.delivered,
		Terminated: b.terminated,
		Canceled:   b.canceled,
	}
}

// flushLocked adds n to the requested demand and drains if nobody else is.
// It must be called with b.mu held and returns with it released.
func (b *Buffer[T]) flushLocked(n reactive.Demand) reactive.Demand {
	b.requested = b.requested.Add(n)

	if b.draining || b.canceled || b.terminated || b.requested.IsZero() {
		b.mu.Unlock()
		return reactive.None
	}

	b.draining = true
	return b.drainLocked()
}

// drainLocked delivers queued values while demand allows, then either flushes
// the terminal signal or computes the demand not yet sent upstream. It must
// be called with b.mu held and b.draining set; it clears b.draining and
// returns with b.mu released.
func (b *Buffer[T]) drainLocked() reactive.Demand {
	for b.queue.len() > 0 && b.processed.Less(b.requested) && !b.canceled {
		v := b.queue.pop()
		b.observeQueueLocked()
		b.mu.Unlock()

		more := b.deliver(v)

		b.mu.Lock()
		b.requested = b.requested.Add(more)
		b.processed = b.processed.Add(reactive.Max(1))
	}

	if b.canceled {
		b.draining = false
		b.mu.Unlock()
		return reactive.None
	}

	if b.completion != nil {
		c := *b.completion
		dropped := b.queue.len()
		b.resetLocked()
		b.terminated = true
		b.draining = false
		b.mu.Unlock()

		b.logger.Debug("demand buffer terminated",
			zap.String("stream", b.name),
			zap.Stringer("completion", c),
			zap.Int("discarded", dropped))
		b.subscriber.OnComplete(c)
		return reactive.None
	}

	delta := b.requested.Sub(b.sent)
	b.sent = b.requested
	b.draining = false
	b.mu.Unlock()
	return delta
}

// deliver calls the subscriber. b.mu must not be held.
func (b *Buffer[T]) deliver(v T) reactive.Demand {
	b.mu.Lock()
	b.delivered++
	b.mu.Unlock()
	if b.registry != nil {
		b.registry.BufferDelivered.WithLabelValues(b.name).Inc()
	}
	return b.subscriber.OnNext(v)
}

func (b *Buffer[T]) resetLocked() {
	b.queue.reset()
	b.requested = reactive.None
	b.processed = reactive.None
	b.sent = reactive.None
	b.completion = nil
	b.observeQueueLocked()
}

func (b *Buffer[T]) observeQueueLocked() {
	if b.registry != nil {
		b.registry.BufferQueued.WithLabelValues(b.name).Set(float64(b.queue.len()))
	}
}
