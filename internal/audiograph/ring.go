package audiograph

import "sync"

// ring is a thread-safe circular buffer of mono samples.
type ring struct {
	mu   sync.Mutex
	buf  []float32
	w    int // write position
	fill int
}

func newRing(size int) *ring {
	return &ring{buf: make([]float32, size)}
}

// write appends samples, overwriting the oldest when full.
func (r *ring) write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		r.buf[r.w] = s
		r.w = (r.w + 1) % len(r.buf)
	}
	r.fill = min(r.fill+len(samples), len(r.buf))
}

// latest copies the most recent samples into dst, oldest first, and
// returns how many were copied.
func (r *ring) latest(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(len(dst), r.fill)
	start := (r.w - n + len(r.buf)) % len(r.buf)
	for i := range n {
		dst[i] = r.buf[(start+i)%len(r.buf)]
	}
	return n
}

func (r *ring) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = 0
	r.fill = 0
}
