package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"route_service/internal/domain/model"
)

var ErrSessionNotFound = errors.New("exclusion session not found")

const (
	DefaultSessionTTL  = time.Hour
	DefaultMaxSessions = 10000
)

type session struct {
	points  []model.Coordinate
	touched time.Time
}

// SessionStore keeps the points a user excluded during one route search.
// Each search gets its own session so concurrent users never share state.
// Sessions idle for longer than the TTL are dropped, and the least recently
// used one is evicted when the store is full.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

// NewSessionStore creates a store. Non-positive limits fall back to the
// defaults.
func NewSessionStore(ttl time.Duration, maxSessions int) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &SessionStore{
		sessions:    make(map[string]*session),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Start opens an empty session for a new search and returns its id. The
// session named by replaces, if any, is ended.
func (s *SessionStore) Start(replaces string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()

	if replaces != "" {
		delete(s.sessions, replaces)
	}
	now := s.now()
	s.evictLocked(now)
	s.sessions[id] = &session{points: []model.Coordinate{}, touched: now}
	return id
}

// evictLocked drops expired sessions and, when the store is still full, the
// least recently used one.
func (s *SessionStore) evictLocked(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > s.ttl {
			delete(s.sessions, id)
			continue
		}
		if oldestID == "" || sess.touched.Before(oldest) {
			oldestID, oldest = id, sess.touched
		}
	}
	if len(s.sessions) >= s.maxSessions && oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// lookupLocked returns a live session and marks it used.
func (s *SessionStore) lookupLocked(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	now := s.now()
	if now.Sub(sess.touched) > s.ttl {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	sess.touched = now
	return sess, nil
}

// Reset clears the excluded points of a session.
func (s *SessionStore) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	sess.points = []model.Coordinate{}
	return nil
}

func (s *SessionStore) Exclude(id string, p model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	sess.points = append(sess.points, p)
	return nil
}

// Snapshot returns a copy of the excluded points in insertion order.
func (s *SessionStore) Snapshot(id string) ([]model.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	out := make([]model.Coordinate, len(sess.points))
	copy(out, sess.points)
	return out, nil
}

func (s *SessionStore) End(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of sessions held, expired ones included until the
// next Start sweeps them.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
