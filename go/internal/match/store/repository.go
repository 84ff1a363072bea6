// Package store persists match documents and community-scoped player
// statistics in Postgres. The store is a recovery and history surface;
// live match state is owned by the orchestrator's registry.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/sqlc-dev/pqtype"
)

// Querier defines what the repository needs from the database layer.
type Querier interface {
	UpsertMatch(ctx context.Context, arg UpsertMatchParams) error
	GetMatch(ctx context.Context, id uuid.UUID) (MatchRow, error)
	ListMatchesByCommunity(ctx context.Context, community string) ([]MatchRow, error)
	UpsertPlayerStats(ctx context.Context, arg UpsertPlayerStatsParams) error
	GetPlayerStats(ctx context.Context, community, playerID string) (PlayerStatsRow, error)
}

// Repository implements match data access operations.
type Repository struct {
	queries Querier
}

// NewRepository creates a new match repository.
func NewRepository(querier Querier) *Repository {
	return &Repository{queries: querier}
}

// SaveMatch writes the full match document.
func (r *Repository) SaveMatch(ctx context.Context, m *models.Match) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal match document: %w", err)
	}

	err = r.queries.UpsertMatch(ctx, UpsertMatchParams{
		ID:        m.ID,
		Community: m.Community,
		Status:    string(m.Status),
		Doc:       doc,
	})
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}
	return nil
}

// GetMatch retrieves a match document by ID.
func (r *Repository) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	row, err := r.queries.GetMatch(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &errs.NotFoundError{Kind: "match", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return r.rowToModel(row)
}

// ListMatchesByCommunity retrieves all match documents for a community.
func (r *Repository) ListMatchesByCommunity(ctx context.Context, community string) ([]*models.Match, error) {
	rows, err := r.queries.ListMatchesByCommunity(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	matches := make([]*models.Match, 0, len(rows))
	for _, row := range rows {
		m, err := r.rowToModel(row)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// UpsertPlayerStats writes one player's community-scoped statistics.
func (r *Repository) UpsertPlayerStats(ctx context.Context, community string, entry models.LeaderboardEntry) error {
	err := r.queries.UpsertPlayerStats(ctx, UpsertPlayerStatsParams{
		Community:   community,
		PlayerID:    entry.PlayerID,
		Score:       int32(entry.Score),
		Wins:        int32(entry.Wins),
		Submissions: int32(entry.Submissions),
		LastActive:  entry.LastActive,
		Extra:       pqtype.NullRawMessage{},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert player stats: %w", err)
	}
	return nil
}

// GetPlayerStats retrieves one player's community-scoped statistics.
func (r *Repository) GetPlayerStats(ctx context.Context, community, playerID string) (*models.LeaderboardEntry, error) {
	row, err := r.queries.GetPlayerStats(ctx, community, playerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &errs.NotFoundError{Kind: "player stats", ID: community + "/" + playerID}
		}
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}
	return &models.LeaderboardEntry{
		PlayerID:    row.PlayerID,
		Score:       int(row.Score),
		Wins:        int(row.Wins),
		Submissions: int(row.Submissions),
		LastActive:  row.LastActive,
	}, nil
}

func (r *Repository) rowToModel(row MatchRow) (*models.Match, error) {
	var m models.Match
	if err := json.Unmarshal(row.Doc, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match document: %w", err)
	}
	return &m, nil
}
