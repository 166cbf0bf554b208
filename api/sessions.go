package main

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bbernhard/radiology-playground/analysis"
)

type sessionEntry struct {
	mu       sync.Mutex
	session  *analysis.Session
	lastUsed time.Time
}

// SessionStore keeps the analysis sessions of all open popups. Each session is
// guarded by its own mutex, sessions never share state.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	policy   analysis.Policy
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(policy analysis.Policy, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		policy:   policy,
		ttl:      ttl,
		now:      time.Now,
	}
}

func newId() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *SessionStore) Create() (string, error) {
	id, err := newId()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionEntry{session: analysis.NewSession(s.policy), lastUsed: s.now()}
	return id, nil
}

// With runs fn with exclusive access to session id. found is false for unknown
// or expired sessions.
func (s *SessionStore) With(id string, fn func(*analysis.Session) error) (found bool, err error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastUsed = s.now()
	return true, fn(entry.session)
}

// Remove closes session id and forgets it. It returns the request that was still
// outstanding, if any.
func (s *SessionStore) Remove(id string) (pending string, found bool) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	return closeEntry(entry), true
}

func closeEntry(entry *sessionEntry) string {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	var pending string
	if entry.session.State() == analysis.StateLoading {
		pending = entry.session.RequestID()
	}
	entry.session.Close()
	return pending
}

// Expire drops every session idle for longer than the ttl and returns their
// outstanding requests.
func (s *SessionStore) Expire() []string {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*sessionEntry
	for id, entry := range s.sessions {
		entry.mu.Lock()
		idle := entry.lastUsed.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			expired = append(expired, entry)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	var pending []string
	for _, entry := range expired {
		if id := closeEntry(entry); id != "" {
			pending = append(pending, id)
		}
	}
	if len(expired) > 0 {
		log.Debug("[Sessions] Expired ", len(expired), " idle sessions")
	}
	return pending
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// janitor expires idle sessions until ctx is done; onExpire gets the requests
// that were still outstanding.
func (s *SessionStore) janitor(ctx context.Context, interval time.Duration, onExpire func(requestId string)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, id := range s.Expire() {
				onExpire(id)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
