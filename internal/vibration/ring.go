package vibration

// Ring is a fixed-capacity FIFO of float64 samples. When full, pushing a new
// sample evicts the oldest. Eviction is index-based over a preallocated
// backing slice so the per-tick cost stays constant regardless of how long
// the pipeline has been running.
type Ring struct {
	buf   []float64
	start int
	n     int
}

// NewRing creates a ring with the given capacity. Capacity must be >= 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of samples currently buffered.
func (r *Ring) Len() int { return r.n }

// Push appends a sample, evicting the oldest when full.
func (r *Ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// At returns the i-th oldest sample. The caller must ensure 0 <= i < Len().
func (r *Ring) At(i int) float64 {
	return r.buf[(r.start+i)%len(r.buf)]
}

// Values copies the buffered samples, oldest first, into a fresh slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Reset discards all buffered samples without reallocating.
func (r *Ring) Reset() {
	r.start = 0
	r.n = 0
}

// Resize changes the ring's capacity. Existing samples are preserved from the
// most recent end: shrinking keeps the newest `capacity` samples, growing
// keeps everything.
func (r *Ring) Resize(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(r.buf) {
		return
	}
	keep := r.n
	if keep > capacity {
		keep = capacity
	}
	buf := make([]float64, capacity)
	for i := 0; i < keep; i++ {
		// Copy the newest `keep` samples, preserving order.
		buf[i] = r.At(r.n - keep + i)
	}
	r.buf = buf
	r.start = 0
	r.n = keep
}
