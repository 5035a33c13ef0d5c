package livetest

import (
	"sync"

	"github.com/vendapay/teamwizard/pkg/core"
)

// MockTransport implements core.Transport and records every message.
type MockTransport struct {
	sent      []core.Message
	connected bool
	sendErr   error
	mu        sync.Mutex
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

// Send records msg.
func (m *MockTransport) Send(msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	if !m.connected {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected reports whether Close was called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetError makes subsequent sends fail with err. Pass nil to clear it.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentEvents returns the event names of the recorded messages.
func (m *MockTransport) SentEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, msg := range m.sent {
		out[i] = msg.Event
	}
	return out
}

// Reset forgets the recorded messages.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
