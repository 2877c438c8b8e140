package source

import (
	"context"

	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Channel returns a Publisher that reads from ch only while its subscriber
// has demand and finishes when ch is closed. Values are consumed from ch, so
// concurrent subscribers share them rather than each seeing every value.
func Channel[T any](ch <-chan T) reactive.Publisher[T] {
	cfg := DefaultPullConfig()
	cfg.Name = "channel"
	return ChannelWithConfig(ch, cfg)
}

// ChannelWithConfig is Channel with an explicit configuration.
func ChannelWithConfig[T any](ch <-chan T, config PullConfig) reactive.Publisher[T] {
	return Pull(config, func(ctx context.Context, limit int) ([]T, bool, error) {
		var items []T

		select {
		case v, ok := <-ch:
			if !ok {
				return nil, true, nil
			}
			items = append(items, v)
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}

		for len(items) < limit {
			select {
			case v, ok := <-ch:
				if !ok {
					return items, true, nil
				}
				items = append(items, v)
			default:
				return items, false, nil
			}
		}
		return items, false, nil
	})
}
