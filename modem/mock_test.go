package modem_test

import (
	"io"
	"sync"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/watchible/at"
	"i4.energy/across/watchible/modem"
)

// MockSequenceBuilder scripts a MockTransport: every expected command write
// queues the modem's reply, and a single Read expectation hands the replies
// to the receive goroutine in order.
type MockSequenceBuilder struct {
	transport *modem.MockTransport
	replies   chan []byte
	calls     []any

	closeOnce sync.Once
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		replies:   make(chan []byte, 64),
		calls:     []any{},
	}
}

// Command expects cmd to be written and answers it with reply.
func (b *MockSequenceBuilder) Command(cmd, reply string) *MockSequenceBuilder {
	wire := at.Command(cmd)
	b.calls = append(b.calls,
		b.transport.EXPECT().Write(wire).DoAndReturn(func(p []byte) (int, error) {
			if reply != "" {
				b.replies <- []byte(reply)
			}
			return len(p), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) OK(cmd string) *MockSequenceBuilder {
	return b.Command(cmd, "\r\nOK\r\n")
}

func (b *MockSequenceBuilder) Error(cmd string) *MockSequenceBuilder {
	return b.Command(cmd, "\r\nERROR\r\n")
}

func (b *MockSequenceBuilder) Registered() *MockSequenceBuilder {
	return b.Command(modem.CmdQueryRegistration, "\r\n+CEREG: 1,1\r\n\r\nOK\r\n")
}

func (b *MockSequenceBuilder) Searching() *MockSequenceBuilder {
	return b.Command(modem.CmdQueryRegistration, "\r\n+CEREG: 1,2\r\n\r\nOK\r\n")
}

// Close expects the transport to be closed, which ends the pending Read.
func (b *MockSequenceBuilder) Close() *MockSequenceBuilder {
	b.transport.EXPECT().Close().DoAndReturn(func() error {
		b.closeOnce.Do(func() { close(b.replies) })
		return nil
	})
	return b
}

// Unsolicited queues a line that is not an answer to any write.
func (b *MockSequenceBuilder) Unsolicited(data string) {
	b.replies <- []byte(data)
}

// Build registers the Read expectation and returns the ordered writes.
func (b *MockSequenceBuilder) Build() []any {
	var pending []byte
	b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		if len(pending) == 0 {
			data, ok := <-b.replies
			if !ok {
				return 0, io.EOF
			}
			pending = data
		}
		n := copy(p, pending)
		pending = pending[n:]
		return n, nil
	}).AnyTimes()
	return b.calls
}
