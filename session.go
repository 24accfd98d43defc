package main

import "sync"

// session is the per-user conversation state: the current FSM state plus a
// scratch map holding in-progress multi-step form values. Scratch is cleared
// when a flow completes and when the session ends.
type session struct {
	userID  int64
	state   State
	scratch map[string]string

	// Serializes event handling for this user. Sessions for different
	// users never contend on it.
	mu sync.Mutex
}

func (s *session) setScratch(key, value string) {
	s.scratch[key] = value
}

func (s *session) getScratch(key string) (string, bool) {
	v, ok := s.scratch[key]
	return v, ok
}

func (s *session) clearScratch() {
	s.scratch = make(map[string]string)
}

// sessionManager tracks live sessions by user id.
type sessionManager struct {
	mu     sync.RWMutex
	byUser map[int64]*session
}

func newSessionManager() *sessionManager {
	return &sessionManager{byUser: make(map[int64]*session)}
}

// Start returns the user's session, creating a fresh one if none exists.
func (m *sessionManager) Start(userID int64) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byUser[userID]; ok {
		return s
	}
	s := &session{userID: userID, state: StateMainMenu, scratch: make(map[string]string)}
	m.byUser[userID] = s
	return s
}

// Lookup returns the live session or nil.
func (m *sessionManager) Lookup(userID int64) *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byUser[userID]
}

// End drops the session entirely; the next session_start begins fresh.
func (m *sessionManager) End(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byUser, userID)
}
