package modem

import (
	"context"
	"io"
	"strings"
	"sync"
)

// TestTransport is an in-memory Transport for driving a Modem from tests.
// Reads block until SendData queues bytes, the way an idle UART does. Every
// write is kept and announced on a channel so a test can answer commands in
// order.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	pending  []byte
	writes   []string
	written  chan string
	closed   bool
}

// NewTestTransport returns an open TestTransport.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 64),
		written:  make(chan string, 256),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.writes = append(t.writes, string(p))
	select {
	case t.written <- string(p):
	default:
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.pending) == 0 {
		data, ok := <-t.readChan
		if !ok {
			return 0, io.EOF
		}
		t.pending = data
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues modem output for the receive goroutine. It is dropped
// once the transport is closed.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// NextWrite blocks until the next write, or returns "" when ctx is done.
// Commands are returned without their "\r\n" terminator.
func (t *TestTransport) NextWrite(ctx context.Context) string {
	select {
	case w := <-t.written:
		return strings.TrimSuffix(w, "\r\n")
	case <-ctx.Done():
		return ""
	}
}

// Writes returns everything written so far, joined.
func (t *TestTransport) Writes() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.writes, "")
}
