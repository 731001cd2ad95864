package buffer

// Ring is a ring buffer keeping the last x elements.
type Ring[T any] struct {
	index  int
	count  int
	values []T
}

// NewRing creates a new ring with the given buffer size.
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{
		values: make([]T, size),
	}
}

// Size returns the number of elements within the ring.
func (r *Ring[T]) Size() int {
	if r.count < len(r.values) {
		return r.count
	}
	return len(r.values)
}

// Push adds an element to the ring, replacing the oldest one if the ring is full.
func (r *Ring[T]) Push(v T) {
	r.values[r.index] = v
	r.index = r.next(r.index)
	r.count++
}

func (r *Ring[T]) next(index int) int {
	return (index + 1) % len(r.values)
}

// Get returns the ring elements from the oldest to the newest.
func (r *Ring[T]) Get() []T {
	l := r.Size()
	v := make([]T, l)
	start := 0
	if r.count > len(r.values) {
		start = r.index
	}
	for i := 0; i < l; i++ {
		v[i] = r.values[(start+i)%len(r.values)]
	}
	return v
}

// Last returns the newest element.
func (r *Ring[T]) Last() (T, bool) {
	var v T
	if r.count == 0 {
		return v, false
	}
	return r.values[(r.index-1+len(r.values))%len(r.values)], true
}
