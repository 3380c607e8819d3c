// Package session keeps per-user state between interactions. The only state
// is the last explanation produced for the user.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store limits.
const (
	DefaultMaxSessions = 10000
	DefaultIdleTTL     = time.Hour
)

// Session holds the state of one user session.
type Session struct {
	id string

	mu              sync.Mutex
	lastExplanation string
	hasExplanation  bool
}

// New creates a session with the given id.
func New(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LastExplanation returns the most recent explanation, if any.
func (s *Session) LastExplanation() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastExplanation, s.hasExplanation
}

// SetExplanation replaces the last explanation.
func (s *Session) SetExplanation(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastExplanation = text
	s.hasExplanation = true
}

// Options bounds a Store. Zero values select the defaults.
type Options struct {
	// MaxSessions caps the live sessions; the least recently used one ends
	// when a new session would exceed it.
	MaxSessions int
	// IdleTTL ends a session that has not been used for this long.
	IdleTTL time.Duration
	// OnEnd is called with the id of every session that ends, whether it
	// expired, was evicted or was deleted. It runs with the store locked.
	OnEnd func(id string)
}

// Store maps session ids to sessions.
type Store struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
}

// NewStore creates an empty Store.
func NewStore(opts Options) *Store {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}

	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}

	onEnd := opts.OnEnd

	return &Store{
		sessions: expirable.NewLRU[string, *Session](
			opts.MaxSessions,
			func(id string, _ *Session) {
				if onEnd != nil {
					onEnd(id)
				}
			},
			opts.IdleTTL,
		),
	}
}

// Get returns the live session for id and restarts its idle timer.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}

	s.sessions.Add(id, sess)

	return sess, true
}

// Create registers a new session under a random id.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString())

	s.mu.Lock()
	s.sessions.Add(sess.id, sess)
	s.mu.Unlock()

	return sess
}

// GetOrCreate returns the session for id, creating a new one when id is
// unknown or expired. The returned flag is true for new sessions.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	sess, ok := s.Get(id)
	if ok {
		return sess, false
	}

	return s.Create(), true
}

// Delete ends the session for id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	s.sessions.Remove(id)
	s.mu.Unlock()
}

// Len returns the number of sessions held, including expired ones not yet
// swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Len()
}
