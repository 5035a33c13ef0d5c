package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// MockTransport implements Transport for testing.
type MockTransport struct {
	connected bool
	messages  []Message
	mu        sync.Mutex
}

func NewMockTransport() *MockTransport {
	return &MockTransport{connected: true}
}

func (m *MockTransport) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrSocketClosed
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockTransport) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Message, len(m.messages))
	copy(result, m.messages)
	return result
}

func TestNewSocket(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())

	if socket.ID() != "test-id" {
		t.Errorf("expected ID 'test-id', got '%s'", socket.ID())
	}
	if socket.Topic() != "lv:test-id" {
		t.Errorf("expected topic 'lv:test-id', got '%s'", socket.Topic())
	}
	if !socket.IsConnected() {
		t.Error("expected socket to be connected")
	}
	if socket.Assigns() == nil {
		t.Error("expected assigns to be initialized")
	}
}

func TestSocket_Push(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	if err := socket.Push("render", map[string]any{"html": "<p></p>"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	messages := transport.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Event != "render" || messages[0].Topic != "lv:test-id" {
		t.Errorf("unexpected message %+v", messages[0])
	}
}

func TestSocket_Send_Closed(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())

	socket.Close()

	if err := socket.Send(Message{Event: "test"}); err != ErrSocketClosed {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
	if socket.IsConnected() {
		t.Error("expected socket to be disconnected")
	}
}

func TestSocket_Send_Concurrent(t *testing.T) {
	transport := NewMockTransport()
	socket := NewSocket("test-id", transport)

	const goroutines = 20
	const messagesPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				socket.Send(Message{Event: "test", Payload: map[string]any{"id": id, "msg": j}})
			}
		}(i)
	}
	wg.Wait()

	if got, want := len(transport.Messages()), goroutines*messagesPerGoroutine; got != want {
		t.Errorf("expected %d messages, got %d", want, got)
	}
}

func TestSocket_LastActivity(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())
	initial := socket.LastActivity()

	time.Sleep(10 * time.Millisecond)
	socket.Send(Message{Event: "test"})

	if !socket.LastActivity().After(initial) {
		t.Error("expected LastActivity to be updated after Send")
	}
}

func TestSocket_Metadata(t *testing.T) {
	socket := NewSocket("test-id", NewMockTransport())

	socket.SetMetadata("remote", "127.0.0.1")

	if socket.GetMetadata("remote") != "127.0.0.1" {
		t.Errorf("unexpected metadata %v", socket.GetMetadata("remote"))
	}
}

func TestSocketManager_Add_Remove(t *testing.T) {
	sm := NewSocketManager(0)
	s1 := NewSocket("a", NewMockTransport())
	s2 := NewSocket("b", NewMockTransport())

	if err := sm.Add(s1); err != nil {
		t.Fatal(err)
	}
	if err := sm.Add(s2); err != nil {
		t.Fatal(err)
	}
	if sm.Count() != 2 {
		t.Errorf("expected 2 sockets, got %d", sm.Count())
	}
	if got, ok := sm.Get("a"); !ok || got != s1 {
		t.Error("expected to find socket a")
	}

	sm.Remove("a")

	if _, ok := sm.Get("a"); ok {
		t.Error("expected socket a to be removed")
	}
	if len(sm.All()) != 1 {
		t.Errorf("expected 1 socket, got %d", len(sm.All()))
	}
}

func TestSocketManager_Limit(t *testing.T) {
	sm := NewSocketManager(1)

	if err := sm.Add(NewSocket("a", NewMockTransport())); err != nil {
		t.Fatal(err)
	}
	if err := sm.Add(NewSocket("b", NewMockTransport())); err != ErrTooManySockets {
		t.Errorf("expected ErrTooManySockets, got %v", err)
	}
}

func TestSocketManager_Shutdown(t *testing.T) {
	sm := NewSocketManager(0)
	transport := NewMockTransport()
	sm.Add(NewSocket("a", transport))

	if err := sm.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !sm.IsShutdown() {
		t.Error("expected manager to be shut down")
	}
	if transport.IsConnected() {
		t.Error("expected transport to be closed")
	}
	if sm.Count() != 0 {
		t.Errorf("expected no sockets, got %d", sm.Count())
	}
	if err := sm.Add(NewSocket("b", NewMockTransport())); err != ErrManagerClosed {
		t.Errorf("expected ErrManagerClosed, got %v", err)
	}
}

func TestSocketManager_CleanupInactive(t *testing.T) {
	sm := NewSocketManager(0)
	idle := NewSocket("idle", NewMockTransport())
	active := NewSocket("active", NewMockTransport())
	sm.Add(idle)
	sm.Add(active)

	idle.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())

	if removed := sm.CleanupInactive(time.Minute); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := sm.Get("active"); !ok {
		t.Error("expected active socket to remain")
	}
	if idle.IsConnected() {
		t.Error("expected idle socket to be closed")
	}
}

func TestAssigns_TracksChanges(t *testing.T) {
	a := NewAssigns()

	a.Set("step", 1)
	a.SetAll(map[string]any{"open": true, "invalid": []string{"email"}})

	if got := a.Changed(); len(got) != 3 || got[0] != "invalid" || got[1] != "open" || got[2] != "step" {
		t.Errorf("unexpected changed keys %v", got)
	}

	a.ResetChanges()
	a.Set("step", 1)
	if a.HasChanges() {
		t.Error("setting the same value should not mark a change")
	}

	a.Set("step", 2)
	if !a.HasChanges() || a.GetInt("step") != 2 {
		t.Error("expected step change to be tracked")
	}
	if !a.GetBool("open") || a.GetString("missing") != "" {
		t.Error("unexpected typed getters")
	}
	if len(a.Data()) != 3 {
		t.Errorf("expected 3 keys, got %d", len(a.Data()))
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.MaxMessageSize = 0
	if err := cfg.Validate(); err != ErrInvalidMaxMessageSize {
		t.Errorf("expected ErrInvalidMaxMessageSize, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Timeouts.WebSocketRead = 0
	if err := cfg.Validate(); err != ErrInvalidTimeout {
		t.Errorf("expected ErrInvalidTimeout, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Address = ""
	if err := cfg.Validate(); err != ErrInvalidAddress {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	socket := NewSocket("x", NewMockTransport())
	ctx := BuildContext(context.Background(), socket, Session{"user": "ana"}, Params{"tab": "team"})

	if SocketFromContext(ctx) != socket {
		t.Error("socket not found in context")
	}
	if SessionFromContext(ctx).GetString("user") != "ana" {
		t.Error("session not found in context")
	}
	if ParamsFromContext(ctx).GetDefault("tab", "") != "team" || ParamsFromContext(ctx).GetDefault("x", "d") != "d" {
		t.Error("params not found in context")
	}
}

func BenchmarkSocket_Send(b *testing.B) {
	socket := NewSocket("bench", NewMockTransport())
	msg := Message{Event: "render", Payload: map[string]any{"html": "<div></div>"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		socket.Send(msg)
	}
}
