package testutil

import (
	"bytes"
	"errors"
	"sync"

	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// Recorder is a subscriber that records everything it receives. It requests
// Initial on subscribe and answers each value with Policy (None when nil).
// Policy may call back into the recorder, for example to Request more.
type Recorder[T any] struct {
	mu          sync.Mutex
	sub         reactive.Subscription
	subscribes  int
	values      []T
	completions []reactive.Completion
	initial     reactive.Demand
	policy      func(v T) reactive.Demand
}

// NewRecorder creates a Recorder that requests initial on subscribe.
func NewRecorder[T any](initial reactive.Demand) *Recorder[T] {
	return &Recorder[T]{initial: initial}
}

// WithPolicy sets the per-value demand policy and returns r for chaining.
func (r *Recorder[T]) WithPolicy(policy func(v T) reactive.Demand) *Recorder[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
	return r
}

// OnSubscribe implements reactive.Subscriber.
func (r *Recorder[T]) OnSubscribe(s reactive.Subscription) {
	r.mu.Lock()
	r.sub = s
	r.subscribes++
	initial := r.initial
	r.mu.Unlock()

	reactive.RequestIfNeeded(s, initial)
}

// OnNext implements reactive.Subscriber.
func (r *Recorder[T]) OnNext(v T) reactive.Demand {
	r.mu.Lock()
	r.values = append(r.values, v)
	policy := r.policy
	r.mu.Unlock()

	if policy == nil {
		return reactive.None
	}
	return policy(v)
}

// OnComplete implements reactive.Subscriber.
func (r *Recorder[T]) OnComplete(c reactive.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, c)
}

// Request forwards n to the recorded subscription.
func (r *Recorder[T]) Request(n reactive.Demand) {
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()

	if sub != nil {
		sub.Request(n)
	}
}

// Cancel cancels the recorded subscription.
func (r *Recorder[T]) Cancel() {
	r.mu.Lock()
	sub := r.sub
	r.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

// Values returns a copy of the values received so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Completions returns every terminal signal received.
func (r *Recorder[T]) Completions() []reactive.Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reactive.Completion, len(r.completions))
	copy(out, r.completions)
	return out
}

// Completion returns the first terminal signal, if any.
func (r *Recorder[T]) Completion() (reactive.Completion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.completions) == 0 {
		return reactive.Completion{}, false
	}
	return r.completions[0], true
}

// Subscription returns the handle received in OnSubscribe.
func (r *Recorder[T]) Subscription() reactive.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

// Subscribes returns how many times OnSubscribe was called.
func (r *Recorder[T]) Subscribes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribes
}

// ManualPublisher is a producer driven by the test: it records every request
// and cancel from its subscriber and emits only when Send or Complete is
// called.
type ManualPublisher[T any] struct {
	mu          sync.Mutex
	subscriber  reactive.Subscriber[T]
	requests    []reactive.Demand
	outstanding reactive.Demand
	cancels     int
	onRequest   func(n reactive.Demand)
	deferHandle bool
	handle      *manualSubscription[T]
}

// NewManualPublisher creates a ManualPublisher.
func NewManualPublisher[T any]() *ManualPublisher[T] {
	return &ManualPublisher[T]{}
}

// OnRequest installs a hook run after each recorded request, outside any
// lock. Use it to emit synchronously from Request.
func (p *ManualPublisher[T]) OnRequest(fn func(n reactive.Demand)) *ManualPublisher[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = fn
	return p
}

// DeferSubscription makes Subscribe hold back OnSubscribe until
// DeliverSubscription is called.
func (p *ManualPublisher[T]) DeferSubscription() *ManualPublisher[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deferHandle = true
	return p
}

// Subscribe implements reactive.Publisher.
func (p *ManualPublisher[T]) Subscribe(s reactive.Subscriber[T]) {
	p.mu.Lock()
	p.subscriber = s
	p.handle = &manualSubscription[T]{p: p}
	deferred := p.deferHandle
	p.mu.Unlock()

	if !deferred {
		s.OnSubscribe(p.handle)
	}
}

// DeliverSubscription calls OnSubscribe on a deferred subscriber.
func (p *ManualPublisher[T]) DeliverSubscription() {
	p.mu.Lock()
	s, h := p.subscriber, p.handle
	p.mu.Unlock()

	if s != nil {
		s.OnSubscribe(h)
	}
}

// Send delivers v to the subscriber and returns the demand it granted.
func (p *ManualPublisher[T]) Send(v T) reactive.Demand {
	p.mu.Lock()
	s := p.subscriber
	p.outstanding = p.outstanding.Sub(reactive.Max(1))
	p.mu.Unlock()

	more := s.OnNext(v)

	p.mu.Lock()
	p.outstanding = p.outstanding.Add(more)
	p.mu.Unlock()
	return more
}

// Complete delivers a terminal signal to the subscriber.
func (p *ManualPublisher[T]) Complete(c reactive.Completion) {
	p.mu.Lock()
	s := p.subscriber
	p.mu.Unlock()

	s.OnComplete(c)
}

// Requests returns every demand requested through the subscription.
func (p *ManualPublisher[T]) Requests() []reactive.Demand {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]reactive.Demand, len(p.requests))
	copy(out, p.requests)
	return out
}

// Outstanding returns the demand granted but not yet satisfied by Send.
func (p *ManualPublisher[T]) Outstanding() reactive.Demand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Cancels returns how many times Cancel was called on the subscription.
func (p *ManualPublisher[T]) Cancels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancels
}

type manualSubscription[T any] struct {
	p *ManualPublisher[T]
}

func (s *manualSubscription[T]) Request(n reactive.Demand) {
	s.p.mu.Lock()
	s.p.requests = append(s.p.requests, n)
	s.p.outstanding = s.p.outstanding.Add(n)
	hook := s.p.onRequest
	s.p.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

func (s *manualSubscription[T]) Cancel() {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.cancels++
}

// MockWriter is a test writer that records writes and can be told to fail.
type MockWriter struct {
	buf        *bytes.Buffer
	mu         sync.Mutex
	errorOnNth int
	writeCount int
	err        error
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		buf: &bytes.Buffer{},
	}
}

// Write implements io.Writer.
func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	mw.writeCount++

	if mw.err != nil {
		return 0, mw.err
	}

	if mw.errorOnNth > 0 && mw.writeCount == mw.errorOnNth {
		return 0, errors.New("simulated error")
	}

	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// WriteCount returns the number of Write calls.
func (mw *MockWriter) WriteCount() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.writeCount
}

// SetErrorOnNth configures the writer to error on the nth write.
func (mw *MockWriter) SetErrorOnNth(n int) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.errorOnNth = n
}

// SetAlwaysError configures the writer to always return the given error.
func (mw *MockWriter) SetAlwaysError(err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.err = err
}
