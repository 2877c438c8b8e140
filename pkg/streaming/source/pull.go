package source

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	bfcontext "github.com/vnykmshr/backflow/pkg/common/context"
	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/common/validation"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// FetchFunc retrieves up to limit items. Returning done finishes the stream
// after the returned items. An error for which errors.IsRetryable reports
// true is retried after the poll interval; any other error fails the stream.
// ctx is canceled when the subscriber cancels.
type FetchFunc[T any] func(ctx context.Context, limit int) (items []T, done bool, err error)

// PullConfig configures a pull source.
type PullConfig struct {
	// Name labels log entries and metrics.
	Name string `yaml:"name"`

	// BatchSize caps how many items a single fetch may ask for.
	BatchSize int `yaml:"batch_size"`

	// PollInterval is the wait after an empty batch or a retryable error.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Logger receives fetch failures and lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger `yaml:"-"`

	// Metrics records fetches, fetch errors and emitted items.
	Metrics *metrics.Registry `yaml:"-"`
}

// DefaultPullConfig returns a default configuration.
func DefaultPullConfig() PullConfig {
	return PullConfig{
		Name:         "pull",
		BatchSize:    64,
		PollInterval: 100 * time.Millisecond,
	}
}

func (c PullConfig) withDefaults() PullConfig {
	def := DefaultPullConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate reports the first invalid field of c.
func (c PullConfig) Validate() error {
	if err := validation.ValidatePositive("source", "BatchSize", c.BatchSize); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration("source", "PollInterval", c.PollInterval)
}

// Pull returns a Publisher backed by fetch. Each subscriber gets its own
// goroutine, started on its first request, which fetches only while the
// subscriber has unmet demand and never asks for more than that demand or
// BatchSize. An invalid configuration fails the subscriber with a
// *errors.ValidationError.
func Pull[T any](config PullConfig, fetch FetchFunc[T]) reactive.Publisher[T] {
	return reactive.PublisherFunc[T](func(s reactive.Subscriber[T]) {
		cfg := config.withDefaults()
		err := cfg.Validate()
		if err == nil && fetch == nil {
			err = validation.ValidateNotNil("source", "fetch", nil)
		}
		if err != nil {
			reject(s, err)
			return
		}

		s.OnSubscribe(newPuller(s, cfg, fetch))
	})
}

// reject fails a subscriber that could not be served.
func reject[T any](s reactive.Subscriber[T], err error) {
	s.OnSubscribe(reactive.SubscriptionFuncs{})
	s.OnComplete(reactive.Failure(err))
}

type puller[T any] struct {
	mu    sync.Mutex
	owed  reactive.Demand
	wake  chan struct{}
	start sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	buffer *demandbuffer.Buffer[T]
	fetch  FetchFunc[T]
	config PullConfig
}

func newPuller[T any](s reactive.Subscriber[T], config PullConfig, fetch FetchFunc[T]) *puller[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &puller[T]{
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		buffer: demandbuffer.NewWithConfig(s, demandbuffer.Config{
			Name:    config.Name,
			Logger:  config.Logger,
			Metrics: config.Metrics,
		}),
		fetch:  fetch,
		config: config,
	}
}

func (p *puller[T]) Request(n reactive.Demand) {
	more := p.buffer.Demand(n)
	if more.IsZero() {
		return
	}

	p.mu.Lock()
	p.owed = p.owed.Add(more)
	p.mu.Unlock()

	p.start.Do(func() { go p.run() })
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *puller[T]) Cancel() {
	p.cancel()
	p.buffer.Cancel()
}

func (p *puller[T]) run() {
	defer p.cancel()

	p.config.Logger.Debug("pull source started", zap.String("source", p.config.Name))

	for {
		limit, ok := p.waitForDemand()
		if !ok {
			return
		}

		items, done, err := p.fetch(p.ctx, limit)
		p.recordFetch(len(items), err)

		if err != nil {
			if p.ctx.Err() != nil {
				return
			}
			if bferrors.IsRetryable(err) {
				p.config.Logger.Warn("pull source fetch failed, retrying",
					zap.String("source", p.config.Name),
					zap.Duration("retry_in", p.config.PollInterval),
					zap.Error(err))
				if bfcontext.Sleep(p.ctx, p.config.PollInterval) != nil {
					return
				}
				continue
			}

			p.config.Logger.Error("pull source fetch failed",
				zap.String("source", p.config.Name),
				zap.Error(err))
			p.buffer.Complete(reactive.Failure(
				bferrors.NewOperationError("source", "fetch", err).WithContext(p.config.Name)))
			return
		}

		for _, item := range items {
			more := p.buffer.Offer(item)
			p.mu.Lock()
			p.owed = p.owed.Sub(reactive.Max(1)).Add(more)
			p.mu.Unlock()
		}

		if done {
			p.config.Logger.Debug("pull source exhausted", zap.String("source", p.config.Name))
			p.buffer.Complete(reactive.Finished)
			return
		}
		if len(items) == 0 {
			if bfcontext.Sleep(p.ctx, p.config.PollInterval) != nil {
				return
			}
		}
	}
}

// waitForDemand blocks until the subscriber is owed items and returns how
// many to fetch. ok is false once the subscription is canceled.
func (p *puller[T]) waitForDemand() (limit int, ok bool) {
	for {
		p.mu.Lock()
		owed := p.owed
		p.mu.Unlock()

		if !owed.IsZero() {
			limit = p.config.BatchSize
			if n, finite := owed.Count(); finite && n < int64(limit) {
				limit = int(n)
			}
			return limit, true
		}

		select {
		case <-p.ctx.Done():
			return 0, false
		case <-p.wake:
		}
	}
}

func (p *puller[T]) recordFetch(items int, err error) {
	if p.config.Metrics == nil {
		return
	}
	p.config.Metrics.SourceFetches.WithLabelValues(p.config.Name).Inc()
	if err != nil {
		p.config.Metrics.SourceFetchErrors.WithLabelValues(p.config.Name).Inc()
	}
	p.config.Metrics.SourceItems.WithLabelValues(p.config.Name).Add(float64(items))
}
