package relay

// ring is a bounded FIFO of messages. When full, pushing evicts the oldest
// message. It is not safe for concurrent use.
type ring struct {
	items []Message
	head  int
	size  int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{items: make([]Message, capacity)}
}

// push appends m and reports whether an older message was evicted.
func (r *ring) push(m Message) bool {
	capacity := len(r.items)
	if r.size == capacity {
		r.items[r.head] = m
		r.head = (r.head + 1) % capacity
		return true
	}
	r.items[(r.head+r.size)%capacity] = m
	r.size++
	return false
}

// pop removes and returns up to n of the oldest messages.
func (r *ring) pop(n int) []Message {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}

	out := make([]Message, n)
	for i := range out {
		out[i] = r.items[r.head]
		r.items[r.head] = Message{}
		r.head = (r.head + 1) % len(r.items)
	}
	r.size -= n
	return out
}

// popNewest removes up to n of the newest messages and returns them oldest
// first.
func (r *ring) popNewest(n int) []Message {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}

	capacity := len(r.items)
	start := r.head + r.size - n
	out := make([]Message, n)
	for i := range out {
		idx := (start + i) % capacity
		out[i] = r.items[idx]
		r.items[idx] = Message{}
	}
	r.size -= n
	return out
}

func (r *ring) len() int {
	return r.size
}

func (r *ring) capacity() int {
	return len(r.items)
}
