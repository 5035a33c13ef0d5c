package router

import (
	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/protocol"
	"github.com/vendapay/teamwizard/pkg/transport"
)

// TransportAdapter lets a core.Socket push through a transport.Transport.
type TransportAdapter struct {
	t transport.Transport
}

// NewTransportAdapter wraps t.
func NewTransportAdapter(t transport.Transport) *TransportAdapter {
	return &TransportAdapter{t: t}
}

// Send converts msg to a protocol push and queues it.
func (a *TransportAdapter) Send(msg core.Message) error {
	pm := protocol.NewMessage(protocol.TypeOf(msg.Event), msg.Topic, msg.Event).
		WithRef(msg.Ref).
		WithPayload(msg.Payload)
	return a.t.Send(pm)
}

// Close closes the underlying transport.
func (a *TransportAdapter) Close() error {
	return a.t.Close()
}

// IsConnected reports the underlying transport state.
func (a *TransportAdapter) IsConnected() bool {
	return a.t.IsConnected()
}

// Transport returns the wrapped transport.
func (a *TransportAdapter) Transport() transport.Transport {
	return a.t
}
