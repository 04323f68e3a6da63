package mqtt

import "log/slog"

// bufferedMsg is a serialized publish held back while the broker is unreachable.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest capacity messages in arrival order.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	buf     []bufferedMsg
	start   int // oldest entry
	count   int
	dropped int // overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	n := len(r.buf)
	if r.count < n {
		r.buf[(r.start+r.count)%n] = msg
		r.count++
		return
	}
	if r.dropped == 0 {
		slog.Warn("mqtt buffer full, dropping oldest", "capacity", n)
	}
	r.dropped++
	r.buf[r.start] = msg
	r.start = (r.start + 1) % n
}

// drain returns the buffered messages oldest first and how many were lost
// to overflow, then empties the buffer.
func (r *ringBuffer) drain() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}
	out := make([]bufferedMsg, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	r.start, r.count = 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
