package session

import (
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a non-blocking transport.
// Each Read delivers at most one queued chunk and returns (0, nil) when
// nothing is queued, like a serial port with a short read timeout. Replies
// registered with Reply are queued when the matching bytes are written.
type TestTransport struct {
	mu       sync.Mutex
	pending  [][]byte
	replies  map[string][][]string
	written  []string
	readErr  error
	writeErr error
	closed   bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		replies: make(map[string][][]string),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	wire := string(p)
	t.written = append(t.written, wire)
	if queue := t.replies[wire]; len(queue) > 0 {
		for _, chunk := range queue[0] {
			t.pending = append(t.pending, []byte(chunk))
		}
		t.replies[wire] = queue[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if t.readErr != nil {
		return 0, t.readErr
	}
	if len(t.pending) == 0 {
		return 0, nil
	}
	chunk := t.pending[0]
	n = copy(p, chunk)
	if n < len(chunk) {
		t.pending[0] = chunk[n:]
	} else {
		t.pending = t.pending[1:]
	}
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the peripheral.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.pending = append(t.pending, []byte(data))
	}
}

// Reply queues chunks to be delivered after wire is written. Replies for
// the same wire are used once each, in registration order.
func (t *TestTransport) Reply(wire string, chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[wire] = append(t.replies[wire], chunks)
}

// FailReads makes every following Read return err.
func (t *TestTransport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// FailWrites makes every following Write return err.
func (t *TestTransport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Written returns everything written so far, one entry per Write.
func (t *TestTransport) Written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}

// Pending reports how many chunks are still queued.
func (t *TestTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
