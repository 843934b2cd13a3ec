// Package session holds parsed upload data between the upload and ingest
// HTTP calls, keyed by an opaque session id.
package session

import (
	"sync"
	"time"
)

// DefaultTTL is how long an upload session survives without being ingested
const DefaultTTL = time.Hour

// UploadSession bridges the two phases of an import. Created on successful
// parse, read by ingestion, deleted after a successful ingest or evicted
// once the TTL passes. Invariant: every row has exactly len(Headers) cells.
type UploadSession struct {
	ID        string
	Filename  string
	Headers   []string
	Rows      [][]string
	CreatedAt time.Time
}

type entry struct {
	session *UploadSession
	inUse   int
}

// Store is a concurrency-safe upload session store with time-based
// eviction. The clock is injected so expiry is testable. Eviction is
// driven by the caller (the orchestrator sweeps at ingest entry); there
// are no background timers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a session store. A nil clock defaults to time.Now.
func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      now,
	}
}

// Put stores a session, stamping CreatedAt if unset
func (s *Store) Put(session *UploadSession) {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &entry{session: session}
}

// Get returns the session for id, or false if it is missing or expired
func (s *Store) Get(id string) (*UploadSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || s.expired(e) {
		return nil, false
	}
	return e.session, true
}

// Delete removes a session
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Acquire marks a session as referenced by an in-progress ingest so that
// eviction skips it. Returns false if the session is missing or expired.
// Callers must pair every successful Acquire with a Release.
func (s *Store) Acquire(id string) (*UploadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || (s.expired(e) && e.inUse == 0) {
		return nil, false
	}
	e.inUse++
	return e.session, true
}

// Release drops an in-use reference taken by Acquire
func (s *Store) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok && e.inUse > 0 {
		e.inUse--
	}
}

// EvictExpired removes sessions older than the TTL, skipping any session
// currently referenced by an active ingest. Returns the eviction count.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, e := range s.sessions {
		if s.expired(e) && e.inUse == 0 {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored sessions, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.session.CreatedAt) > s.ttl
}
