package redisqueue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Subscriber pushes every value it receives onto the tail of a Redis list.
// It requests BatchSize values at a time. A failed push cancels the
// subscription; the error is reported by Err.
type Subscriber struct {
	mu       sync.Mutex
	sub      reactive.Subscription
	received int
	pushed   int64
	err      error
	finished bool
	done     chan struct{}

	config Config
}

// NewSubscriber creates a Subscriber for config.Key. PollInterval and
// StopWhenEmpty are not used.
func NewSubscriber(config Config) (*Subscriber, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Subscriber{
		done:   make(chan struct{}),
		config: config,
	}, nil
}

// OnSubscribe implements reactive.Subscriber.
func (s *Subscriber) OnSubscribe(sub reactive.Subscription) {
	s.mu.Lock()
	if s.sub != nil || s.finished {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.sub = sub
	s.mu.Unlock()

	sub.Request(reactive.Max(int64(s.config.BatchSize)))
}

// OnNext implements reactive.Subscriber.
func (s *Subscriber) OnNext(v string) reactive.Demand {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return reactive.None
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	err := s.config.Client.RPush(ctx, s.config.Key, v).Err()
	cancel()

	if err != nil {
		err = bferrors.NewOperationError("redisqueue", "push", err).
			WithContext(fmt.Sprintf("key=%s", s.config.Key))
		s.config.Logger.Error("redis push failed",
			zap.String("stream", s.config.Name),
			zap.Error(err))

		s.mu.Lock()
		sub := s.sub
		s.mu.Unlock()
		if sub != nil {
			sub.Cancel()
		}
		s.finish(err)
		return reactive.None
	}

	if s.config.Metrics != nil {
		s.config.Metrics.SourceItems.WithLabelValues(s.config.Name).Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed++
	s.received++
	if s.received == s.config.BatchSize {
		s.received = 0
		return reactive.Max(int64(s.config.BatchSize))
	}
	return reactive.None
}

// OnComplete implements reactive.Subscriber.
func (s *Subscriber) OnComplete(c reactive.Completion) {
	s.finish(c.Err())
}

// Cancel stops pushing and cancels the upstream subscription.
func (s *Subscriber) Cancel() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	s.finish(bferrors.ErrCanceled)
}

// Done is closed once the upstream stream terminated, a push failed or the
// subscriber was canceled.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Err returns why the subscriber finished: nil after a normal completion,
// the upstream failure, a push error, or errors.ErrCanceled.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pushed returns how many values were pushed to Redis.
func (s *Subscriber) Pushed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}

func (s *Subscriber) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	s.sub = nil
	close(s.done)

	s.config.Logger.Debug("redis subscriber finished",
		zap.String("stream", s.config.Name),
		zap.Int64("pushed", s.pushed),
		zap.Error(err))
}
