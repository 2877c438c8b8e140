package redisqueue

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vnykmshr/backflow/pkg/common/validation"
	"github.com/vnykmshr/backflow/pkg/metrics"
)

// Config holds configuration for Redis list publishers and subscribers.
type Config struct {
	// Client is the Redis connection. Required.
	Client redis.UniversalClient `yaml:"-"`

	// Key is the Redis list to pop from or push to. Required.
	Key string `yaml:"key"`

	// Name labels log entries and metrics (defaults to Key).
	Name string `yaml:"name"`

	// BatchSize caps how many items one LPOP asks for, and how much demand a
	// Subscriber requests at a time.
	BatchSize int `yaml:"batch_size"`

	// PollInterval is the wait between polls of an empty list.
	PollInterval time.Duration `yaml:"poll_interval"`

	// StopWhenEmpty finishes a publisher the first time it finds the list
	// empty instead of polling.
	StopWhenEmpty bool `yaml:"stop_when_empty"`

	// Timeout bounds every Redis command.
	Timeout time.Duration `yaml:"timeout"`

	// Logger receives command failures and lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger `yaml:"-"`

	// Metrics records fetches, pushed items and stream metrics.
	Metrics *metrics.Registry `yaml:"-"`
}

// DefaultConfig returns a default configuration without a client or key.
func DefaultConfig() Config {
	return Config{
		BatchSize:    64,
		PollInterval: 100 * time.Millisecond,
		Timeout:      500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = c.Key
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if c.Client == nil {
		return validation.ValidateNotNil("redisqueue", "Client", nil)
	}
	if err := validation.ValidateNotEmpty("redisqueue", "Key", c.Key); err != nil {
		return err
	}
	if err := validation.ValidatePositive("redisqueue", "BatchSize", c.BatchSize); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration("redisqueue", "PollInterval", c.PollInterval); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration("redisqueue", "Timeout", c.Timeout)
}
