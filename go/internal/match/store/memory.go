package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

// MemoryStore keeps match documents and player stats in memory. Used
// in tests and in single-process deployments without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID][]byte
	stats   map[string]models.LeaderboardEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[uuid.UUID][]byte),
		stats:   make(map[string]models.LeaderboardEntry),
	}
}

// SaveMatch writes the full match document.
func (s *MemoryStore) SaveMatch(ctx context.Context, m *models.Match) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = doc
	return nil
}

// GetMatch retrieves a match document by ID.
func (s *MemoryStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	s.mu.Lock()
	doc, ok := s.matches[id]
	s.mu.Unlock()
	if !ok {
		return nil, &errs.NotFoundError{Kind: "match", ID: id.String()}
	}
	var m models.Match
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertPlayerStats writes one player's community-scoped statistics.
func (s *MemoryStore) UpsertPlayerStats(ctx context.Context, community string, entry models.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[community+"/"+entry.PlayerID] = entry
	return nil
}

// GetPlayerStats retrieves one player's community-scoped statistics.
func (s *MemoryStore) GetPlayerStats(ctx context.Context, community, playerID string) (*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.stats[community+"/"+playerID]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "player stats", ID: community + "/" + playerID}
	}
	out := entry
	return &out, nil
}
