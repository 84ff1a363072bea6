package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is the subset of pgx used by the query layer. Both a pool and a
// transaction satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MatchRow is the matches table row. The full match document lives in
// a JSONB column; id, community and status are promoted for lookups.
type MatchRow struct {
	ID        uuid.UUID
	Community string
	Status    string
	Doc       json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerStatsRow is the player_stats table row, keyed by community and
// player id.
type PlayerStatsRow struct {
	Community   string
	PlayerID    string
	Score       int32
	Wins        int32
	Submissions int32
	LastActive  time.Time
	Extra       pqtype.NullRawMessage
	UpdatedAt   time.Time
}

// Queries runs the SQL for the match store.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertMatch = `
INSERT INTO matches (id, community, status, doc, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status, doc = EXCLUDED.doc, updated_at = now()
`

// UpsertMatchParams holds arguments for UpsertMatch.
type UpsertMatchParams struct {
	ID        uuid.UUID
	Community string
	Status    string
	Doc       json.RawMessage
}

// UpsertMatch inserts or replaces one match document.
func (q *Queries) UpsertMatch(ctx context.Context, arg UpsertMatchParams) error {
	_, err := q.db.Exec(ctx, upsertMatch, arg.ID, arg.Community, arg.Status, arg.Doc)
	return err
}

const getMatch = `
SELECT id, community, status, doc, created_at, updated_at
FROM matches
WHERE id = $1
`

// GetMatch fetches one match row by id.
func (q *Queries) GetMatch(ctx context.Context, id uuid.UUID) (MatchRow, error) {
	row := q.db.QueryRow(ctx, getMatch, id)
	var m MatchRow
	err := row.Scan(&m.ID, &m.Community, &m.Status, &m.Doc, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const listMatchesByCommunity = `
SELECT id, community, status, doc, created_at, updated_at
FROM matches
WHERE community = $1
ORDER BY created_at DESC
`

// ListMatchesByCommunity fetches all match rows for one community.
func (q *Queries) ListMatchesByCommunity(ctx context.Context, community string) ([]MatchRow, error) {
	rows, err := q.db.Query(ctx, listMatchesByCommunity, community)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MatchRow
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.Community, &m.Status, &m.Doc, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const upsertPlayerStats = `
INSERT INTO player_stats (community, player_id, score, wins, submissions, last_active, extra, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (community, player_id) DO UPDATE
SET score = EXCLUDED.score,
    wins = EXCLUDED.wins,
    submissions = EXCLUDED.submissions,
    last_active = EXCLUDED.last_active,
    extra = EXCLUDED.extra,
    updated_at = now()
`

// UpsertPlayerStatsParams holds arguments for UpsertPlayerStats.
type UpsertPlayerStatsParams struct {
	Community   string
	PlayerID    string
	Score       int32
	Wins        int32
	Submissions int32
	LastActive  time.Time
	Extra       pqtype.NullRawMessage
}

// UpsertPlayerStats inserts or replaces one player's community stats.
func (q *Queries) UpsertPlayerStats(ctx context.Context, arg UpsertPlayerStatsParams) error {
	_, err := q.db.Exec(ctx, upsertPlayerStats,
		arg.Community, arg.PlayerID, arg.Score, arg.Wins, arg.Submissions, arg.LastActive, arg.Extra)
	return err
}

const getPlayerStats = `
SELECT community, player_id, score, wins, submissions, last_active, extra, updated_at
FROM player_stats
WHERE community = $1 AND player_id = $2
`

// GetPlayerStats fetches one player's stats row.
func (q *Queries) GetPlayerStats(ctx context.Context, community, playerID string) (PlayerStatsRow, error) {
	row := q.db.QueryRow(ctx, getPlayerStats, community, playerID)
	var s PlayerStatsRow
	err := row.Scan(&s.Community, &s.PlayerID, &s.Score, &s.Wins, &s.Submissions, &s.LastActive, &s.Extra, &s.UpdatedAt)
	return s, err
}
