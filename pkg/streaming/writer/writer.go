package writer

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	bferrors "github.com/vnykmshr/backflow/pkg/common/errors"
	"github.com/vnykmshr/backflow/pkg/common/validation"
	"github.com/vnykmshr/backflow/pkg/metrics"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// ErrWriterClosed is reported by Err when the subscriber was canceled.
var ErrWriterClosed = errors.New("writer is closed")

// Stats holds statistics about a writer subscriber.
type Stats struct {
	// BytesWritten is the total number of bytes accepted by the buffer.
	BytesWritten int64

	// WriteCount is the number of values written.
	WriteCount int64

	// FlushCount is the number of flushes to the underlying writer.
	FlushCount int64

	// ErrorCount is the number of failed writes and flushes.
	ErrorCount int64

	// LastWriteTime is the timestamp of the last write.
	LastWriteTime time.Time
}

// Config holds configuration options for a writer subscriber.
type Config struct {
	// BatchSize is how many values are requested at a time. The buffer is
	// flushed after every batch.
	// Default: 64
	BatchSize int

	// BufferSize is the size of the bufio buffer in bytes.
	// Default: 64KB
	BufferSize int

	// Name labels log entries and metrics.
	// Default: "writer"
	Name string

	// OnError is called when a write or flush fails.
	OnError func(error)

	// OnFlush is called after each successful flush, with the writer locked:
	// it must not call back into the Subscriber.
	OnFlush func(bytesFlushed int, duration time.Duration)

	// Logger receives write failures and lifecycle events. Nil means zap.NewNop().
	Logger *zap.Logger

	// Metrics records flushes and bytes written.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:  64,
		BufferSize: 64 * 1024,
		Name:       "writer",
	}
}

// Subscriber writes every []byte value it receives to an io.Writer.
type Subscriber struct {
	mu       sync.Mutex
	sub      reactive.Subscription
	buf      *bufio.Writer
	received int
	pending  int
	stats    Stats
	err      error
	finished bool
	done     chan struct{}

	config Config
}

// New creates a Subscriber with default configuration.
func New(w io.Writer) *Subscriber {
	s, _ := NewWithConfig(w, DefaultConfig())
	return s
}

// NewWithConfig creates a Subscriber with the specified configuration. Zero
// values are replaced by defaults; negative sizes are rejected.
func NewWithConfig(w io.Writer, config Config) (*Subscriber, error) {
	def := DefaultConfig()
	if config.BatchSize == 0 {
		config.BatchSize = def.BatchSize
	}
	if config.BufferSize == 0 {
		config.BufferSize = def.BufferSize
	}
	if config.Name == "" {
		config.Name = def.Name
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	if err := validation.ValidateNotNil("writer", "Writer", w); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("writer", "BatchSize", config.BatchSize); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("writer", "BufferSize", config.BufferSize); err != nil {
		return nil, err
	}

	return &Subscriber{
		buf:    bufio.NewWriterSize(w, config.BufferSize),
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
func (s *Subscriber) OnNext(data []byte) reactive.Demand {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return reactive.None
	}

	n, err := s.buf.Write(data)
	s.stats.BytesWritten += int64(n)
	s.pending += n
	if err == nil {
		s.stats.WriteCount++
		s.stats.LastWriteTime = time.Now()
		s.received++
		if s.received == s.config.BatchSize {
			s.received = 0
			err = s.flushLocked()
		}
	}
	if err != nil {
		s.stats.ErrorCount++
		sub := s.sub
		s.mu.Unlock()

		s.fail(sub, err)
		return reactive.None
	}

	more := reactive.None
	if s.received == 0 {
		more = reactive.Max(int64(s.config.BatchSize))
	}
	s.mu.Unlock()
	return more
}

// OnComplete implements reactive.Subscriber. Buffered data is flushed before
// Done is closed; a flush error replaces a successful completion.
func (s *Subscriber) OnComplete(c reactive.Completion) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	err := c.Err()
	ferr := s.flushLocked()
	if ferr != nil {
		s.stats.ErrorCount++
		if err == nil {
			err = ferr
		}
	}
	s.finishLocked(err)
	s.mu.Unlock()

	if ferr != nil {
		s.notifyError(ferr)
	}
}

// Cancel stops writing and cancels the upstream subscription. Data already
// buffered is flushed.
func (s *Subscriber) Cancel() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	sub := s.sub
	ferr := s.flushLocked()
	if ferr != nil {
		s.stats.ErrorCount++
	}
	s.finishLocked(ErrWriterClosed)
	s.mu.Unlock()

	if ferr != nil {
		s.notifyError(ferr)
	}
	if sub != nil {
		sub.Cancel()
	}
}

// Done is closed once the subscriber has finished.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Err returns why the subscriber finished: nil after a normal completion,
// the upstream failure, a write error, or ErrWriterClosed.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the writer statistics.
func (s *Subscriber) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Subscriber) fail(sub reactive.Subscription, err error) {
	err = bferrors.NewOperationError("writer", "write", err).WithContext(s.config.Name)
	s.notifyError(err)

	if sub != nil {
		sub.Cancel()
	}

	s.mu.Lock()
	if !s.finished {
		s.finishLocked(err)
	}
	s.mu.Unlock()
}

func (s *Subscriber) notifyError(err error) {
	s.config.Logger.Error("writer failed",
		zap.String("writer", s.config.Name),
		zap.Error(err))
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

func (s *Subscriber) flushLocked() error {
	if s.pending == 0 && s.buf.Buffered() == 0 {
		return nil
	}

	start := time.Now()
	if err := s.buf.Flush(); err != nil {
		return err
	}
	flushed := s.pending
	s.pending = 0
	s.stats.FlushCount++

	if s.config.Metrics != nil {
		s.config.Metrics.WriterFlushes.WithLabelValues(s.config.Name).Inc()
		s.config.Metrics.WriterBytesWritten.WithLabelValues(s.config.Name).Add(float64(flushed))
	}
	if s.config.OnFlush != nil {
		s.config.OnFlush(flushed, time.Since(start))
	}
	return nil
}

func (s *Subscriber) finishLocked(err error) {
	s.finished = true
	s.err = err
	s.sub = nil
	close(s.done)

	s.config.Logger.Debug("writer finished",
		zap.String("writer", s.config.Name),
		zap.Int64("bytes", s.stats.BytesWritten),
		zap.Error(err))
}
