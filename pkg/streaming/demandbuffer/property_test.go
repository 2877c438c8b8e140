package demandbuffer

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vnykmshr/backflow/pkg/streaming/reactive"
)

// TestBuffer_Properties drives a buffer with random interleavings of offers
// and finite demand while the consumer grants a random amount per value.
func TestBuffer_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		grants := rapid.SliceOfN(rapid.Int64Range(0, 2), 0, 64).Draw(t, "grants")
		reenter := rapid.Bool().Draw(t, "reenter")

		var (
			buf       *Buffer[int]
			delivered []int
			granted   int64
			returned  int64
		)
		sub := reactive.SubscriberFuncs[int]{
			Next: func(v int) reactive.Demand {
				delivered = append(delivered, v)
				if int64(len(delivered)) > granted {
					t.Fatalf("delivered %d values with only %d granted", len(delivered), granted)
				}
				var g int64
				if i := len(delivered) - 1; i < len(grants) {
					g = grants[i]
				}
				granted += g
				if reenter && g > 0 {
					// Grant through a nested Demand call instead of the return
					// value; the drainer reports it.
					buf.Demand(reactive.Max(g))
					return reactive.None
				}
				return reactive.Max(g)
			},
		}
		buf = New[int](sub)

		account := func(d reactive.Demand) {
			n, ok := d.Count()
			if !ok {
				t.Fatalf("finite demand produced %v", d)
			}
			returned += n
		}

		offered := 0
		steps := rapid.IntRange(0, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "offer") {
				account(buf.Offer(offered))
				offered++
				continue
			}
			n := rapid.Int64Range(0, 3).Draw(t, "demand")
			granted += n
			account(buf.Demand(reactive.Max(n)))
		}

		for i, v := range delivered {
			if v != i {
				t.Fatalf("value %d delivered at position %d", v, i)
			}
		}

		want := int64(offered)
		if granted < want {
			want = granted
		}
		if int64(len(delivered)) != want {
			t.Fatalf("delivered %d values, want min(offered=%d, granted=%d)", len(delivered), offered, granted)
		}
		if returned != granted {
			t.Fatalf("upstream asked for %d, consumer granted %d", returned, granted)
		}
		if got := buf.Len(); got != offered-len(delivered) {
			t.Fatalf("queue holds %d values, want %d", got, offered-len(delivered))
		}
	})
}
