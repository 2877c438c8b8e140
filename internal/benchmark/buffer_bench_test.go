package benchmark

import (
	"sync"
	"testing"

	"github.com/vnykmshr/backflow/pkg/streaming/demandbuffer"
	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

func discard[T any](perValue reactive.Demand) reactive.Subscriber[T] {
	return reactive.SubscriberFuncs[T]{
		Next: func(T) reactive.Demand { return perValue },
	}
}

// BenchmarkBufferOfferUnlimited measures the unlimited-demand fast path.
func BenchmarkBufferOfferUnlimited(b *testing.B) {
	buf := demandbuffer.New(discard[int](reactive.None))
	buf.Demand(reactive.Unlimited)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Offer(i)
	}
}

// BenchmarkBufferOfferOneByOne measures delivery when the subscriber grants
// one more value from every OnNext.
func BenchmarkBufferOfferOneByOne(b *testing.B) {
	buf := demandbuffer.New(discard[int](reactive.Max(1)))
	buf.Demand(reactive.Max(1))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Offer(i)
	}
}

// BenchmarkBufferQueueThenDrain measures queuing values ahead of demand and
// releasing them in batches.
func BenchmarkBufferQueueThenDrain(b *testing.B) {
	batchSizes := []int{10, 100, 1000}

	for _, batch := range batchSizes {
		b.Run(sizeLabel(batch), func(b *testing.B) {
			buf := demandbuffer.New(discard[int](reactive.None))

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for j := 0; j < batch; j++ {
					buf.Offer(j)
				}
				buf.Demand(reactive.Max(int64(batch)))
			}
		})
	}
}

// BenchmarkBufferConcurrentOffer measures contention between producers
// offering into one buffer.
func BenchmarkBufferConcurrentOffer(b *testing.B) {
	producers := []int{1, 4, 16}

	for _, n := range producers {
		b.Run(sizeLabel(n), func(b *testing.B) {
			buf := demandbuffer.New(discard[int](reactive.None))
			buf.Demand(reactive.Unlimited)

			per := b.N/n + 1
			var wg sync.WaitGroup

			b.ReportAllocs()
			b.ResetTimer()
			for p := 0; p < n; p++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < per; i++ {
						buf.Offer(i)
					}
				}()
			}
			wg.Wait()
		})
	}
}

func sizeLabel(size int) string {
	switch {
	case size >= 1000:
		return "1k"
	case size >= 100:
		return "100"
	case size >= 16:
		return "16"
	case size >= 10:
		return "10"
	case size >= 4:
		return "4"
	default:
		return "1"
	}
}
