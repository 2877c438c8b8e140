package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Config holds configuration for an Adapter.
type Config[In, Out any] struct {
	// Transform converts an upstream value. Returning false drops the value.
	// Receiving a value while Transform is nil panics.
	Transform func(In) (Out, bool)

	// ReplenishDropped grants upstream one more value for every value
	// Transform drops, so a dropped value does not use up downstream's
	// demand. When false a dropped value reports no new demand and a
	// filtering adapter can stall until downstream requests again.
	ReplenishDropped bool

	// TransformError converts an upstream failure. Returning false swallows
	// it: the downstream subscriber then never sees a terminal signal.
	// Receiving a failure while TransformError is nil panics.
	TransformError func(error) (error, bool)

	// Name labels log entries and metrics.
	Name string

	// Logger receives lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger

	// Metrics records demand, drops, completions and cancellations. Nil
	// disables metrics.
	Metrics *metrics.Registry

	// Context, when set, cancels the adapter once it is done.
	Context context.Context
}

// DefaultConfig returns a configuration that passes values and failures
// through unchanged.
func DefaultConfig[T any]() Config[T, T] {
	return Config[T, T]{
		Transform:      Identity[T](),
		TransformError: PassError,
		Name:           "bridge",
	}
}

// Identity returns a transform that forwards every value unchanged.
func Identity[T any]() func(T) (T, bool) {
	return func(v T) (T, bool) { return v, true }
}

// PassError forwards every failure unchanged.
func PassError(err error) (error, bool) {
	return err, true
}

// Adapter subscribes to an upstream publisher on behalf of a downstream
// subscriber. Upstream sees it as a Subscriber; downstream sees it as the
// Subscription it requests through. Values flow through a demand buffer so
// downstream never receives more than it asked for, and a terminal signal
// reaches downstream only after the values it had already asked for.
type Adapter[In, Out any] struct {
	mu         sync.Mutex
	upstream   reactive.Subscription
	pending    reactive.Demand
	canceled   bool
	terminated bool
	stop       func() bool

	buffer         *demandbuffer.Buffer[Out]
	transform      func(In) (Out, bool)
	transformError func(error) (error, bool)
	replenish      bool

	name     string
	logger   *zap.Logger
	registry *metrics.Registry
}

// New creates an Adapter feeding downstream and subscribes it to upstream.
// Downstream is not handed the adapter; use Attach for that, or call
// downstream.OnSubscribe yourself.
func New[In, Out any](upstream reactive.Publisher[In], downstream reactive.Subscriber[Out], config Config[In, Out]) *Adapter[In, Out] {
	if config.Name == "" {
		config.Name = "bridge"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Adapter[In, Out]{
		buffer: demandbuffer.NewWithConfig(downstream, demandbuffer.Config{
			Name:    config.Name,
			Logger:  logger,
			Metrics: config.Metrics,
		}),
		transform:      config.Transform,
		transformError: config.TransformError,
		replenish:      config.ReplenishDropped,
		name:           config.Name,
		logger:         logger,
		registry:       config.Metrics,
	}

	if config.Context != nil {
		a.stop = context.AfterFunc(config.Context, a.Cancel)
	}

	upstream.Subscribe(a)
	return a
}

// Attach creates an Adapter between upstream and downstream and hands it to
// downstream as its subscription.
func Attach[In, Out any](upstream reactive.Publisher[In], downstream reactive.Subscriber[Out], config Config[In, Out]) *Adapter[In, Out] {
	a := New(upstream, downstream, config)
	downstream.OnSubscribe(a)
	return a
}

// Lift returns a Publisher that attaches a fresh Adapter over upstream for
// every subscriber.
func Lift[In, Out any](upstream reactive.Publisher[In], config Config[In, Out]) reactive.Publisher[Out] {
	return reactive.PublisherFunc[Out](func(s reactive.Subscriber[Out]) {
		Attach(upstream, s, config)
	})
}

// OnSubscribe stores the upstream handle. An adapter keeps one handle for
// its lifetime: a second one, or one arriving after Cancel, is canceled at
// once. Demand downstream asked for before the handle arrived is requested
// now.
func (a *Adapter[In, Out]) OnSubscribe(s reactive.Subscription) {
	a.mu.Lock()
	if a.canceled || a.terminated || a.upstream != nil {
		duplicate := a.upstream != nil
		a.mu.Unlock()

		if duplicate {
			a.logger.Warn("bridge received a second subscription",
				zap.String("stream", a.name))
		}
		s.Cancel()
		return
	}
	a.upstream = s
	pending := a.pending
	a.pending = reactive.None
	a.mu.Unlock()

	a.logger.Debug("bridge subscribed",
		zap.String("stream", a.name),
		zap.Stringer("pending", pending))
	a.requestUpstream(s, pending)
}

// OnNext transforms v and offers it to the buffer, returning the demand to
// grant upstream. Values arriving after cancellation are ignored without
// running the transform.
func (a *Adapter[In, Out]) OnNext(v In) reactive.Demand {
	if a.transform == nil {
		panic(bferrors.NewContractError("bridge", "OnNext", "no value transform configured"))
	}

	a.mu.Lock()
	canceled := a.canceled
	a.mu.Unlock()
	if canceled {
		return reactive.None
	}

	out, ok := a.transform(v)
	if !ok {
		if a.registry != nil {
			a.registry.ValuesDropped.WithLabelValues(a.name).Inc()
		}
		if a.replenish {
			a.recordRequest(reactive.Max(1))
			return reactive.Max(1)
		}
		return reactive.None
	}

	more := a.buffer.Offer(out)
	a.recordRequest(more)
	return more
}

// OnComplete forwards the terminal signal through the buffer. Failures pass
// through TransformError first.
func (a *Adapter[In, Out]) OnComplete(c reactive.Completion) {
	if c.IsFinished() {
		a.finish()
		a.buffer.Complete(c)
		a.recordCompletion(metrics.CompletionFinished)
		return
	}

	if a.transformError == nil {
		panic(bferrors.NewContractError("bridge", "OnComplete", "no error transform configured"))
	}

	err, ok := a.transformError(c.Err())
	a.finish()
	if !ok {
		a.logger.Warn("bridge swallowed upstream failure",
			zap.String("stream", a.name),
			zap.Error(c.Err()))
		a.recordCompletion(metrics.CompletionSwallowed)
		return
	}

	a.buffer.Complete(reactive.Failure(err))
	a.recordCompletion(metrics.CompletionFailure)
}

// Request records n more downstream demand and requests whatever the buffer
// reports as still owed upstream.
func (a *Adapter[In, Out]) Request(n reactive.Demand) {
	more := a.buffer.Demand(n)

	a.mu.Lock()
	if a.canceled || a.terminated {
		a.mu.Unlock()
		return
	}
	h := a.upstream
	if h == nil {
		a.pending = a.pending.Add(more)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.requestUpstream(h, more)
}

// Cancel cancels the upstream handle, if any, and discards buffered values.
// It is safe to call more than once and before a handle has arrived.
func (a *Adapter[In, Out]) Cancel() {
	a.mu.Lock()
	if a.canceled {
		a.mu.Unlock()
		return
	}
	a.canceled = true
	h := a.upstream
	a.upstream = nil
	a.pending = reactive.None
	stop := a.stop
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.buffer.Cancel()
	if h != nil {
		h.Cancel()
	}

	if a.registry != nil {
		a.registry.Cancellations.WithLabelValues(a.name).Inc()
	}
	a.logger.Debug("bridge canceled", zap.String("stream", a.name))
}

// Buffered returns the number of values waiting for downstream demand.
func (a *Adapter[In, Out]) Buffered() int {
	return a.buffer.Len()
}

// finish releases the upstream handle once upstream has terminated.
func (a *Adapter[In, Out]) finish() {
	a.mu.Lock()
	a.terminated = true
	a.upstream = nil
	a.pending = reactive.None
	stop := a.stop
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (a *Adapter[In, Out]) requestUpstream(h reactive.Subscription, d reactive.Demand) {
	if d.IsZero() {
		return
	}
	a.recordRequest(d)
	h.Request(d)
}

func (a *Adapter[In, Out]) recordRequest(d reactive.Demand) {
	if a.registry == nil || d.IsZero() {
		return
	}
	if n, ok := d.Count(); ok {
		a.registry.DemandRequested.WithLabelValues(a.name).Add(float64(n))
		return
	}
	a.registry.UnlimitedRequests.WithLabelValues(a.name).Inc()
}

func (a *Adapter[In, Out]) recordCompletion(kind string) {
	if a.registry != nil {
		a.registry.StreamCompletions.WithLabelValues(a.name, kind).Inc()
	}
}
