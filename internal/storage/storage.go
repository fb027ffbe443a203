// Package storage keeps the capture sessions hosted by the gateway.
package storage

import (
	"sort"
	"sync"

	"github.com/neuranote/neuranote/internal/capture"
)

type SessionStore struct {
	sessions map[string]*capture.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*capture.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*capture.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(session *capture.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// List returns every session ordered by id
func (s *SessionStore) List() []*capture.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*capture.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Delete drops a session and reports whether it existed
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return exists
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
