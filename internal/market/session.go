package market

import (
	"sync"
	"time"
)

// Session owns one client's creator panel. The panel is created once and
// only mutated through Tick; readers always receive copies.
type Session struct {
	mu          sync.RWMutex
	id          string
	seed        uint64
	rng         Rand
	panel       []CreatorRecord
	filters     Filters
	createdAt   time.Time
	refreshedAt time.Time
	ticks       uint64
}

// NewSession generates the panel for a new session from seed.
func NewSession(id string, gen *CreatorGenerator, seed uint64, now time.Time) *Session {
	rng := NewRand(seed)
	return &Session{
		id:          id,
		seed:        seed,
		rng:         rng,
		panel:       gen.Generate(rng, now),
		filters:     DefaultFilters(),
		createdAt:   now,
		refreshedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Seed returns the seed the panel was generated from.
func (s *Session) Seed() uint64 { return s.seed }

// Tick applies one round of live jitter to the panel.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ApplyJitter(s.panel, s.rng)
	s.ticks++
	s.refreshedAt = now
}

// Creators returns a copy of the panel.
func (s *Session) Creators() []CreatorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CreatorRecord(nil), s.panel...)
}

// Filters returns the last filters the session rendered with.
func (s *Session) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetFilters records the filters of the latest render.
func (s *Session) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
}

// AutoRefresh reports whether the refresher should tick this session.
func (s *Session) AutoRefresh() bool {
	return s.Filters().AutoRefresh
}

// Ticks returns how many jitter rounds were applied.
func (s *Session) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

// RefreshedAt returns the time of the last tick (or creation).
func (s *Session) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// ViewRand returns a source for per-render draws (projections, risk
// scores). It is stable between ticks so reloading a page does not
// reshuffle the charts.
func (s *Session) ViewRand(salt uint64) Rand {
	return NewRand(s.seed ^ salt ^ (s.Ticks() << 32))
}
