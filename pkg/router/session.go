package router

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendapay/teamwizard/pkg/core"
	"github.com/vendapay/teamwizard/pkg/transport"
)

// LiveViewSession binds one mounted component to its WebSocket connection.
type LiveViewSession struct {
	ID        string
	SocketID  string
	Topic     string
	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport
	Params    core.Params
	Session   core.Session
	CreatedAt time.Time

	joinRef      string
	mounted      bool
	renderHash   uint64
	lastActivity time.Time
	cancel       context.CancelFunc

	mu sync.RWMutex
}

// NewLiveViewSession creates a session for a freshly upgraded socket.
func NewLiveViewSession(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	now := time.Now()
	return &LiveViewSession{
		ID:           uuid.NewString(),
		SocketID:     socketID,
		Topic:        "lv:" + socketID,
		Component:    comp,
		Params:       params,
		Session:      session,
		CreatedAt:    now,
		lastActivity: now,
	}
}

// UpdateActivity records that the client talked to us.
func (s *LiveViewSession) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the time of the last client message.
func (s *LiveViewSession) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// SetMounted marks the component as mounted.
func (s *LiveViewSession) SetMounted(mounted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = mounted
}

// IsMounted reports whether Mount already ran on this connection.
func (s *LiveViewSession) IsMounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// SetJoinRef stores the join reference sent by the client.
func (s *LiveViewSession) SetJoinRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joinRef = ref
}

// JoinRef returns the join reference sent by the client.
func (s *LiveViewSession) JoinRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joinRef
}

// swapRender records the hash of html and reports whether it differs from
// the previously recorded render.
func (s *LiveViewSession) swapRender(html string) bool {
	h := fnv.New64a()
	h.Write([]byte(html))
	sum := h.Sum64()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderHash == sum {
		return false
	}
	s.renderHash = sum
	return true
}

func (s *LiveViewSession) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// Stop cancels the session's message loop.
func (s *LiveViewSession) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// LiveViewSessionManager tracks the active LiveView sessions.
type LiveViewSessionManager struct {
	sessions map[string]*LiveViewSession
	bySocket map[string]*LiveViewSession
	mu       sync.RWMutex
}

// NewLiveViewSessionManager creates an empty session manager.
func NewLiveViewSessionManager() *LiveViewSessionManager {
	return &LiveViewSessionManager{
		sessions: make(map[string]*LiveViewSession),
		bySocket: make(map[string]*LiveViewSession),
	}
}

// Create creates and registers a session.
func (m *LiveViewSessionManager) Create(socketID string, comp core.Component, params core.Params, session core.Session) *LiveViewSession {
	s := NewLiveViewSession(socketID, comp, params, session)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	m.bySocket[socketID] = s
	return s
}

// Get returns a session by ID.
func (m *LiveViewSessionManager) Get(sessionID string) (*LiveViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// GetBySocket returns the session bound to a socket.
func (m *LiveViewSessionManager) GetBySocket(socketID string) (*LiveViewSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bySocket[socketID]
	return s, ok
}

// Remove unregisters a session.
func (m *LiveViewSessionManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		delete(m.bySocket, s.SocketID)
		delete(m.sessions, sessionID)
	}
}

// Count returns the number of sessions.
func (m *LiveViewSessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of the sessions.
func (m *LiveViewSessionManager) All() []*LiveViewSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*LiveViewSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result
}

// StopIdle stops sessions whose last activity is older than maxIdle and
// returns how many were stopped.
func (m *LiveViewSessionManager) StopIdle(maxIdle time.Duration) int {
	now := time.Now()
	stopped := 0
	for _, s := range m.All() {
		if now.Sub(s.LastActivity()) > maxIdle {
			s.Stop()
			stopped++
		}
	}
	return stopped
}
