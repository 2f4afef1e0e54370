package session_test

import (
	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/atlink/session"
)

type MockSequenceBuilder struct {
	transport *session.MockTransport
	calls     []any
}

func NewMockSequence(transport *session.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Command expects wire to be written, followed by one Read per chunk.
func (b *MockSequenceBuilder) Command(wire string, chunks ...string) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(wire)).Return(len(wire), nil),
	)
	return b.Receive(chunks...)
}

// Receive expects one Read per chunk, each returning that chunk.
func (b *MockSequenceBuilder) Receive(chunks ...string) *MockSequenceBuilder {
	for _, chunk := range chunks {
		b.calls = append(b.calls,
			b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
				return copy(p, chunk), nil
			}),
		)
	}
	return b
}

// Silence expects n reads that find no data.
func (b *MockSequenceBuilder) Silence(n int) *MockSequenceBuilder {
	if n > 0 {
		b.calls = append(b.calls,
			b.transport.EXPECT().Read(gomock.Any()).Return(0, nil).Times(n),
		)
	}
	return b
}

func (b *MockSequenceBuilder) AT() *MockSequenceBuilder {
	return b.Command("AT\r", "AT\r", "\r\nOK\r\n")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}
