package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Factory builds a session for a new id
type Factory func(id string) *Session

// Manager tracks live sessions by id
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	draining sync.WaitGroup // removed sessions with saves in flight
}

// NewManager creates an empty manager
func NewManager(factory Factory) *Manager {
	return &Manager{sessions: make(map[string]*Session), factory: factory}
}

// Create starts a session with a fresh random id
func (m *Manager) Create() *Session {
	s := m.factory(newID())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and forgets the session with id. Its background saves keep
// running and are waited for by CloseAll.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close()
	m.draining.Add(1)
	go func() {
		defer m.draining.Done()
		s.Wait()
	}()
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session and waits for their background saves,
// including those of sessions already removed. Callers must stop creating
// and removing sessions first.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		s.Wait()
	}
	m.draining.Wait()
}

func newID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
