package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusInitializing      MatchStatus = "INITIALIZING"
	MatchStatusWaitingForPlayers MatchStatus = "WAITING_FOR_PLAYERS"
	MatchStatusActive            MatchStatus = "ACTIVE"
	MatchStatusRoundInProgress   MatchStatus = "ROUND_IN_PROGRESS"
	MatchStatusRoundEnded        MatchStatus = "ROUND_ENDED"
	MatchStatusPaused            MatchStatus = "PAUSED"
	MatchStatusCompleted         MatchStatus = "COMPLETED"
	MatchStatusCancelled         MatchStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state. No timers are
// armed for a match in a terminal state.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// MatchDifficulty defines scoring difficulty for a match.
type MatchDifficulty string

const (
	DifficultyEasy   MatchDifficulty = "EASY"
	DifficultyMedium MatchDifficulty = "MEDIUM"
	DifficultyHard   MatchDifficulty = "HARD"
)

// MatchConfig holds the configuration a match is created with.
type MatchConfig struct {
	Title            string          `json:"title"`
	RoundDurationSec int             `json:"round_duration_sec"`
	Difficulty       MatchDifficulty `json:"difficulty"`
	Prompts          []string        `json:"prompts"`
	PlayerCap        int             `json:"player_cap,omitempty"`
	Prizes           []string        `json:"prizes,omitempty"`
}

// RoundCount returns the number of rounds the config describes.
func (c MatchConfig) RoundCount() int {
	return len(c.Prompts)
}

// Match represents one complete competition instance. It is owned
// exclusively by the orchestrator and mutated only through its methods.
type Match struct {
	ID                uuid.UUID           `json:"id"`
	Community         string              `json:"community"`
	Thread            ThreadHandle        `json:"thread"`
	Status            MatchStatus         `json:"status"`
	Config            MatchConfig         `json:"config"`
	Rounds            []*Round            `json:"rounds"`
	CurrentRoundIndex int                 `json:"current_round_index"`
	Players           []string            `json:"players"`
	Leaderboard       []*LeaderboardEntry `json:"leaderboard"`
	CreatedAt         time.Time           `json:"created_at"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	EndedAt           *time.Time          `json:"ended_at,omitempty"`
}

// CurrentRound returns the round at CurrentRoundIndex, or nil if no
// round has started yet.
func (m *Match) CurrentRound() *Round {
	if m.CurrentRoundIndex < 0 || m.CurrentRoundIndex >= len(m.Rounds) {
		return nil
	}
	return m.Rounds[m.CurrentRoundIndex]
}

// HasPlayer reports whether the player has joined the match.
func (m *Match) HasPlayer(playerID string) bool {
	for _, p := range m.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

// LeaderboardEntryFor returns the leaderboard row for a player, or nil.
func (m *Match) LeaderboardEntryFor(playerID string) *LeaderboardEntry {
	for _, e := range m.Leaderboard {
		if e.PlayerID == playerID {
			return e
		}
	}
	return nil
}

// Clone returns a deep copy of the match, safe to hand to readers while
// the orchestrator keeps mutating the original under its lock.
func (m *Match) Clone() *Match {
	out := *m
	out.Config.Prompts = append([]string(nil), m.Config.Prompts...)
	out.Config.Prizes = append([]string(nil), m.Config.Prizes...)
	out.Thread.RoundEntryIDs = append([]string(nil), m.Thread.RoundEntryIDs...)
	out.Thread.SubmissionEntryIDs = append([]string(nil), m.Thread.SubmissionEntryIDs...)
	out.Thread.ResultEntryIDs = append([]string(nil), m.Thread.ResultEntryIDs...)
	out.Players = append([]string(nil), m.Players...)
	if m.StartedAt != nil {
		t := *m.StartedAt
		out.StartedAt = &t
	}
	if m.EndedAt != nil {
		t := *m.EndedAt
		out.EndedAt = &t
	}
	out.Rounds = make([]*Round, len(m.Rounds))
	for i, r := range m.Rounds {
		out.Rounds[i] = r.Clone()
	}
	out.Leaderboard = make([]*LeaderboardEntry, len(m.Leaderboard))
	for i, e := range m.Leaderboard {
		entry := *e
		out.Leaderboard[i] = &entry
	}
	return &out
}
