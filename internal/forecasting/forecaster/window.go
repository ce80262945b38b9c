package forecaster

// slidingWindow holds the most recent n values in a buffer of 2n so the
// current window is always one contiguous slice.
type slidingWindow struct {
	buf  []float64
	head int
	n    int
}

func newSlidingWindow(initial []float64) *slidingWindow {
	n := len(initial)
	w := &slidingWindow{buf: make([]float64, 2*n), n: n}
	copy(w.buf, initial)
	copy(w.buf[n:], initial)
	return w
}

// push drops the oldest value and appends v.
func (w *slidingWindow) push(v float64) {
	w.buf[w.head] = v
	w.buf[w.head+w.n] = v
	w.head = (w.head + 1) % w.n
}

// values returns the window oldest first. The slice is only valid until the next push.
func (w *slidingWindow) values() []float64 {
	return w.buf[w.head : w.head+w.n]
}
