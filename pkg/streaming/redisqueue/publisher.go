package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
	"github.com/vnykmshr/backflow/pkg/streaming/source"
)

// NewPublisher returns a Publisher that pops items from the head of a Redis
// list. It pops only while its subscriber has demand, at most BatchSize
// items per LPOP. Timeouts are retried; other Redis errors fail the stream.
func NewPublisher(config Config) (reactive.Publisher[string], error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return source.Pull(source.PullConfig{
		Name:         config.Name,
		BatchSize:    config.BatchSize,
		PollInterval: config.PollInterval,
		Logger:       config.Logger,
		Metrics:      config.Metrics,
	}, func(ctx context.Context, limit int) ([]string, bool, error) {
		return pop(ctx, config, limit)
	}), nil
}

func pop(ctx context.Context, config Config, limit int) ([]string, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	items, err := config.Client.LPopCount(cctx, config.Key, limit).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, config.StopWhenEmpty, nil
	case err != nil:
		if ctx.Err() == nil && isTimeout(err) {
			return nil, false, fmt.Errorf("%w: LPOP %s: %v", bferrors.ErrTimeout, config.Key, err)
		}
		return nil, false, err
	}
	return items, false, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
