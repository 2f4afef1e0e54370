// Package frame implements the bounded receive buffer that accumulates the
// byte chunks read from a peripheral until a response can be recognized.
package frame

// DefaultCapacity is the receive window used when none is configured.
const DefaultCapacity = 1024

// AppendResult reports what a single Append did to the buffer.
type AppendResult struct {
	// Added is the number of valid (non-NUL) bytes that were stored.
	Added int
	// Evicted is the number of old bytes dropped from the front of the
	// buffer to make room.
	Evicted int
}

// Grew reports whether real traffic was stored by the call.
func (r AppendResult) Grew() bool { return r.Added > 0 }

// Shifted reports whether the front of the buffer moved, which invalidates
// any offsets computed against the previous contents.
func (r AppendResult) Shifted() bool { return r.Evicted > 0 }

// Buffer is a fixed-capacity, append-only byte window. When an append does
// not fit, the oldest bytes are evicted so the buffer always holds the most
// recent bytes in arrival order. NUL bytes are never stored.
//
// A Buffer has a single owner and is not safe for concurrent use.
type Buffer struct {
	data []byte
	n    int
}

// New returns an empty buffer holding at most capacity bytes. A capacity
// below one falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Append stores the non-NUL bytes of p, evicting from the front exactly the
// number of bytes needed to fit them.
func (b *Buffer) Append(p []byte) AppendResult {
	valid := 0
	for _, c := range p {
		if c != 0 {
			valid++
		}
	}
	if valid == 0 {
		return AppendResult{}
	}

	capacity := len(b.data)
	res := AppendResult{Added: valid}

	// Only the last capacity bytes of an oversized chunk can survive.
	skip := 0
	if valid > capacity {
		skip = valid - capacity
		valid = capacity
	}

	if overflow := b.n + valid - capacity; overflow > 0 {
		copy(b.data, b.data[overflow:b.n])
		b.n -= overflow
		res.Evicted = overflow
	}
	res.Evicted += skip

	for _, c := range p {
		if c == 0 {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		b.data[b.n] = c
		b.n++
	}
	return res
}

// Reset empties the buffer without releasing its storage.
func (b *Buffer) Reset() {
	b.n = 0
}

// Bytes returns a read-only view of the valid region. The view is only
// valid until the next Append or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Snapshot returns an owned copy of the valid region.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, b.n)
	copy(out, b.data[:b.n])
	return out
}

// Len returns the number of valid bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }
