package solver

// history is a fixed-depth ring buffer of accepted state snapshots. Depth 1
// suffices for single-step methods; multistep methods can request more. The
// buffer is never empty once seeded, so newest() is always defined.
type history struct {
	buf  [][]float64
	head int
	size int
}

func newHistory(depth, dim int) *history {
	h := &history{buf: make([][]float64, depth)}
	for i := range h.buf {
		h.buf[i] = make([]float64, dim)
	}
	return h
}

// push copies x into the ring, overwriting the oldest snapshot once full.
func (h *history) push(x []float64) {
	if h.size < len(h.buf) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
	copy(h.buf[(h.head+h.size-1)%len(h.buf)], x)
}

// newest returns the most recently pushed snapshot. The caller must not
// mutate it.
func (h *history) newest() []float64 {
	return h.buf[(h.head+h.size-1)%len(h.buf)]
}

func (h *history) len() int { return h.size }

func (h *history) depth() int { return len(h.buf) }
