package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

// managedMatch pairs a live match with its lock and the bookkeeping the
// orchestrator needs while the match is resident. All mutations to the
// underlying match happen with mu held.
type managedMatch struct {
	mu    sync.Mutex
	match *models.Match

	// pause bookkeeping: the state to return to and how much round
	// time was left when the pause hit.
	pausedFrom      models.MatchStatus
	pausedRemaining time.Duration

	// consecutive failed boundary publishes; reset on success, resume
	// and pause.
	publishFailures int
}

// snapshot returns a deep copy of the match taken under the lock.
func (mm *managedMatch) snapshot() *models.Match {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.match.Clone()
}

// Registry holds every live match. It is an explicit object with its
// own lifecycle rather than a package-level map, so hosts and tests
// control exactly what shared state exists.
type Registry struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]*managedMatch
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		matches: make(map[uuid.UUID]*managedMatch),
	}
}

// Get returns the managed match for an id, or nil if it is not live.
// Timer callbacks go through here by id so an evicted match simply
// fails the lookup instead of being mutated through a stale pointer.
func (r *Registry) Get(id uuid.UUID) *managedMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matches[id]
}

// Put registers a live match.
func (r *Registry) Put(mm *managedMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[mm.match.ID] = mm
}

// Remove evicts a match from live memory.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, id)
}

// List returns the live managed matches in no particular order. Callers
// take each match's own lock before touching it; the registry lock is
// released first because eviction locks in the opposite order.
func (r *Registry) List() []*managedMatch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*managedMatch, 0, len(r.matches))
	for _, mm := range r.matches {
		out = append(out, mm)
	}
	return out
}

// Len returns the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
