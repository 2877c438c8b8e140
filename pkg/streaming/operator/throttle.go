package operator

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	bfcontext "github.com/vnykmshr/backflow/pkg/common/context"
	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/common/validation"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// ThrottleConfig configures Throttle.
type ThrottleConfig struct {
	// Rate is the sustained number of values per second. Required.
	Rate float64 `yaml:"rate"`

	// Burst is how many values may be requested at once after an idle period.
	// Default: 1
	Burst int `yaml:"burst"`

	// Name labels log entries and metrics.
	// Default: "throttle"
	Name string `yaml:"name"`

	Logger  *zap.Logger       `yaml:"-"`
	Metrics *metrics.Registry `yaml:"-"`
}

// Throttle paces a publisher with a token bucket. Downstream demand is
// forwarded upstream only as tokens become available, so the upstream is
// never asked for more than Rate values per second on average, nor more
// than Burst at once. Values and the terminal signal pass straight through.
// An invalid configuration fails the subscriber with a
// *errors.ValidationError.
func Throttle[T any](pub reactive.Publisher[T], config ThrottleConfig) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(downstream reactive.Subscriber[T]) {
		if config.Burst == 0 {
			config.Burst = 1
		}
		if config.Name == "" {
			config.Name = "throttle"
		}
		if config.Logger == nil {
			config.Logger = zap.NewNop()
		}

		if err := config.validate(); err != nil {
			downstream.OnSubscribe(reactive.SubscriptionFuncs{})
			downstream.OnComplete(reactive.Failure(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		t := &throttle[T]{
			wake:       make(chan struct{}, 1),
			ctx:        ctx,
			stop:       cancel,
			bucket:     newTokenBucket(config.Rate, config.Burst, time.Now()),
			downstream: downstream,
			config:     config,
		}
		downstream.OnSubscribe(t)
		pub.Subscribe(t)
	})
}

func (c ThrottleConfig) validate() error {
	if c.Rate <= 0 || math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return bferrors.NewValidationError("operator", "Rate", c.Rate, "must be a positive finite number").
			WithHint("rate is in values per second")
	}
	return validation.ValidatePositive("operator", "Burst", c.Burst)
}

// throttle is the upstream subscriber and the downstream subscription at once.
type throttle[T any] struct {
	mu         sync.Mutex
	upstream   reactive.Subscription
	wanted     reactive.Demand
	terminated bool
	canceled   bool

	wake  chan struct{}
	start sync.Once
	ctx   context.Context
	stop  context.CancelFunc

	// bucket is only touched by the run goroutine.
	bucket *tokenBucket

	downstream reactive.Subscriber[T]
	config     ThrottleConfig
}

func (t *throttle[T]) OnSubscribe(h reactive.Subscription) {
	t.mu.Lock()
	if t.upstream != nil || t.canceled || t.terminated {
		t.mu.Unlock()
		h.Cancel()
		return
	}
	t.upstream = h
	t.mu.Unlock()

	t.signal()
}

func (t *throttle[T]) OnNext(v T) reactive.Demand {
	t.mu.Lock()
	if t.canceled || t.terminated {
		t.mu.Unlock()
		return reactive.None
	}
	t.mu.Unlock()

	t.addDemand(t.downstream.OnNext(v))
	return reactive.None
}

func (t *throttle[T]) OnComplete(c reactive.Completion) {
	t.mu.Lock()
	if t.canceled || t.terminated {
		t.mu.Unlock()
		return
	}
	t.terminated = true
	t.upstream = nil
	t.mu.Unlock()

	t.stop()
	t.downstream.OnComplete(c)
}

func (t *throttle[T]) Request(n reactive.Demand) {
	t.addDemand(n)
}

func (t *throttle[T]) Cancel() {
	t.mu.Lock()
	if t.canceled || t.terminated {
		t.mu.Unlock()
		return
	}
	t.canceled = true
	up := t.upstream
	t.upstream = nil
	t.mu.Unlock()

	t.stop()
	if t.config.Metrics != nil {
		t.config.Metrics.Cancellations.WithLabelValues(t.config.Name).Inc()
	}
	if up != nil {
		up.Cancel()
	}
}

func (t *throttle[T]) addDemand(n reactive.Demand) {
	if n.IsZero() {
		return
	}

	t.mu.Lock()
	if t.canceled || t.terminated {
		t.mu.Unlock()
		return
	}
	t.wanted = t.wanted.Add(n)
	t.mu.Unlock()

	t.start.Do(func() { go t.run() })
	t.signal()
}

func (t *throttle[T]) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *throttle[T]) run() {
	for {
		want, ok := t.waitForDemand()
		if !ok {
			return
		}

		granted, wait := t.bucket.take(time.Now(), want)
		if granted == 0 {
			if bfcontext.Sleep(t.ctx, wait) != nil {
				return
			}
			continue
		}

		t.mu.Lock()
		if t.canceled || t.terminated {
			t.mu.Unlock()
			return
		}
		t.wanted = t.wanted.Sub(reactive.Max(granted))
		up := t.upstream
		t.mu.Unlock()

		if t.config.Metrics != nil {
			t.config.Metrics.DemandRequested.WithLabelValues(t.config.Name).Add(float64(granted))
		}
		up.Request(reactive.Max(granted))
	}
}

// waitForDemand blocks until downstream demand is unmet and the upstream
// subscription has arrived, and returns how many values to ask for at most.
func (t *throttle[T]) waitForDemand() (int64, bool) {
	for {
		t.mu.Lock()
		wanted, ready := t.wanted, t.upstream != nil
		t.mu.Unlock()

		if ready && !wanted.IsZero() {
			want := int64(t.config.Burst)
			if n, finite := wanted.Count(); finite && n < want {
				want = n
			}
			return want, true
		}

		select {
		case <-t.ctx.Done():
			return 0, false
		case <-t.wake:
		}
	}
}

// tokenBucket refills at rate tokens per second up to burst.
type tokenBucket struct {
	rate       float64
	burst      float64
	tokens     float64
	lastUpdate time.Time
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		rate:       rate,
		burst:      float64(burst),
		tokens:     float64(burst),
		lastUpdate: now,
	}
}

// take removes up to want whole tokens. When none is available it returns
// how long until the next one.
func (tb *tokenBucket) take(now time.Time, want int64) (int64, time.Duration) {
	tb.updateTokens(now)

	available := int64(tb.tokens)
	if available < 1 {
		return 0, time.Duration(float64(time.Second) * (1 - tb.tokens) / tb.rate)
	}
	if want < available {
		available = want
	}
	tb.tokens -= float64(available)
	return available, 0
}

func (tb *tokenBucket) updateTokens(now time.Time) {
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*tb.rate, tb.burst)
	tb.lastUpdate = now
}
