package market

import (
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSessionCapacity bounds the number of live sessions.
const DefaultSessionCapacity = 1024

// SessionStore keeps the most recently used sessions.
type SessionStore struct {
	mu       sync.Mutex
	sessions *lru.Cache
	gen      *CreatorGenerator
	baseSeed uint64
	clock    func() time.Time
}

// NewSessionStore builds a store holding at most capacity sessions. When
// baseSeed is non-zero every session seed is derived from it and the
// session id, so a given id always gets the same panel.
func NewSessionStore(gen *CreatorGenerator, capacity int, baseSeed uint64) (*SessionStore, error) {
	if gen == nil {
		return nil, invalidf("session store requires a creator generator")
	}
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &SessionStore{
		sessions: cache,
		gen:      gen,
		baseSeed: baseSeed,
		clock:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the store clock for testing.
func (s *SessionStore) WithClock(fn func() time.Time) {
	if fn != nil {
		s.clock = fn
	}
}

// GetOrCreate returns the session for id, creating it on first use with
// the store clock as generation time.
func (s *SessionStore) GetOrCreate(id string) *Session {
	return s.GetOrCreateAt(id, s.clock())
}

// GetOrCreateAt is GetOrCreate with an explicit generation time. now only
// matters when the session does not exist yet.
func (s *SessionStore) GetOrCreateAt(id string, now time.Time) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.sessions.Get(id); ok {
		return value.(*Session)
	}
	sess := NewSession(id, s.gen, s.seedFor(id), now.UTC())
	s.sessions.Add(id, sess)
	return sess
}

// Get returns an existing session.
func (s *SessionStore) Get(id string) (*Session, bool) {
	value, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return value.(*Session), true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}

// Each visits every live session from oldest to newest.
func (s *SessionStore) Each(fn func(*Session)) {
	for _, key := range s.sessions.Keys() {
		if value, ok := s.sessions.Peek(key); ok {
			fn(value.(*Session))
		}
	}
}

func (s *SessionStore) seedFor(id string) uint64 {
	if s.baseSeed == 0 {
		return rand.Uint64()
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return s.baseSeed ^ h.Sum64()
}
