// Package protocol defines the messages exchanged between browser and server
// and the codecs that put them on the wire.
package protocol

import (
	"fmt"
	"time"
)

// MessageType identifies the type of protocol message.
type MessageType uint8

const (
	// MsgEvent is a user interaction forwarded to the component.
	MsgEvent MessageType = iota
	// MsgJoin is sent when a client joins its LiveView topic.
	MsgJoin
	// MsgLeave is sent when a client leaves.
	MsgLeave
	// MsgReply answers a message carrying a ref.
	MsgReply
	// MsgRender carries a full re-render of the component.
	MsgRender
	// MsgHeartbeat keeps the connection alive.
	MsgHeartbeat
)

// Event names with a protocol meaning.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"
	EventRender    = "render"
)

// String returns a string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MsgEvent:
		return "event"
	case MsgJoin:
		return "join"
	case MsgLeave:
		return "leave"
	case MsgReply:
		return "reply"
	case MsgRender:
		return "render"
	case MsgHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// TypeOf maps an event name to its message type.
func TypeOf(event string) MessageType {
	switch event {
	case EventJoin:
		return MsgJoin
	case EventLeave:
		return MsgLeave
	case EventReply:
		return MsgReply
	case EventHeartbeat, "phx_heartbeat":
		return MsgHeartbeat
	case EventRender:
		return MsgRender
	default:
		return MsgEvent
	}
}

// Message is one frame exchanged between client and server.
type Message struct {
	// Type identifies what kind of message this is
	Type MessageType `json:"t" msgpack:"t"`

	// Ref is a correlation ID for request/response matching
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the channel this message belongs to (e.g., "lv:socket-id")
	Topic string `json:"topic" msgpack:"topic"`

	// Event is the specific event name (e.g., "next_step", "submit")
	Event string `json:"event,omitempty" msgpack:"event,omitempty"`

	// Payload contains the message data
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp when the message was created
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`

	// JoinRef is the join reference for the channel
	JoinRef string `json:"join_ref,omitempty" msgpack:"join_ref,omitempty"`
}

// NewMessage creates a new message with the given parameters.
func NewMessage(msgType MessageType, topic, event string) *Message {
	return &Message{
		Type:      msgType,
		Topic:     topic,
		Event:     event,
		Payload:   make(map[string]any),
		Timestamp: time.Now().UnixMilli(),
	}
}

// WithRef adds a reference ID to the message.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// WithPayload sets the message payload.
func (m *Message) WithPayload(payload map[string]any) *Message {
	m.Payload = payload
	return m
}

// WithJoinRef sets the join reference.
func (m *Message) WithJoinRef(joinRef string) *Message {
	m.JoinRef = joinRef
	return m
}

// PayloadString returns a payload value as a string. Non-string scalars
// are formatted, missing keys yield "".
func (m *Message) PayloadString(key string) string {
	if m.Payload == nil {
		return ""
	}
	switch v := m.Payload[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// EventMessage creates an event message.
func EventMessage(topic, event string, payload map[string]any) *Message {
	return NewMessage(MsgEvent, topic, event).WithPayload(payload)
}

// JoinMessage creates a join message.
func JoinMessage(topic string, params map[string]any) *Message {
	return NewMessage(MsgJoin, topic, EventJoin).WithPayload(params)
}

// ReplyMessage creates a reply message.
func ReplyMessage(ref, topic string, status string, response map[string]any) *Message {
	return NewMessage(MsgReply, topic, EventReply).
		WithRef(ref).
		WithPayload(map[string]any{
			"status":   status,
			"response": response,
		})
}

// OkReply creates a successful reply message.
func OkReply(ref, topic string, response map[string]any) *Message {
	return ReplyMessage(ref, topic, "ok", response)
}

// ErrorReply creates an error reply message.
func ErrorReply(ref, topic string, reason string) *Message {
	return ReplyMessage(ref, topic, "error", map[string]any{"reason": reason})
}

// RenderMessage pushes the full HTML of a component.
func RenderMessage(topic, html string) *Message {
	return NewMessage(MsgRender, topic, EventRender).WithPayload(map[string]any{"html": html})
}

// HeartbeatMessage creates a heartbeat message.
func HeartbeatMessage() *Message {
	return NewMessage(MsgHeartbeat, "phoenix", EventHeartbeat)
}
