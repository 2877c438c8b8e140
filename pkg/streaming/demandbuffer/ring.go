package demandbuffer

const minRingSize = 8

// ring is a growable FIFO ring buffer. It is not safe for concurrent use;
// Buffer guards it with its mutex.
type ring[T any] struct {
	items []T
	head  int
	count int
}

func (r *ring[T]) len() int {
	return r.count
}

func (r *ring[T]) push(v T) {
	if r.count == len(r.items) {
		r.grow()
	}
	r.items[(r.head+r.count)%len(r.items)] = v
	r.count++
}

func (r *ring[T]) pop() T {
	v := r.items[r.head]
	var zero T
	r.items[r.head] = zero // Clear reference
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return v
}

func (r *ring[T]) grow() {
	size := len(r.items) * 2
	if size < minRingSize {
		size = minRingSize
	}
	items := make([]T, size)
	for i := 0; i < r.count; i++ {
		items[i] = r.items[(r.head+i)%len(r.items)]
	}
	r.items = items
	r.head = 0
}

func (r *ring[T]) reset() {
	r.items = nil
	r.head = 0
	r.count = 0
}
