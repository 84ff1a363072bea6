// Package scoring computes submission point values and maintains the
// ranked leaderboard. Scoring is pure with respect to recorded
// submissions: recomputing from the full history always yields the
// same ranks.
package scoring

import (
	"sort"

	"github.com/mcdev12/snapmatch/go/internal/models"
)

// Base points per difficulty. The speed bonus on top is proportional
// to how much of the round was left when the submission arrived.
const (
	basePointsEasy   = 100
	basePointsMedium = 200
	basePointsHard   = 300
	maxSpeedBonus    = 100
)

// Engine computes scores and ranks leaderboard entries.
type Engine struct{}

// NewEngine creates a scoring engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the point value for a submission within its round.
// It depends only on the submission time and round metadata, so a
// replay over recorded submissions is deterministic.
func (e *Engine) Score(sub *models.Submission, round *models.Round) int {
	base := basePointsMedium
	switch round.Difficulty {
	case models.DifficultyEasy:
		base = basePointsEasy
	case models.DifficultyHard:
		base = basePointsHard
	}

	if round.DurationSec <= 0 {
		return base
	}
	total := round.EndTime.Sub(round.StartTime)
	remaining := round.EndTime.Sub(sub.SubmittedAt)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	bonus := int(float64(maxSpeedBonus) * remaining.Seconds() / total.Seconds())
	return base + bonus
}

// Rank orders entries by descending score, ties broken by earlier
// LastActive, then by player id for stability. Rank fields are
// assigned 1-based. The input slice is sorted in place and returned.
func (e *Engine) Rank(entries []*models.LeaderboardEntry) []*models.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].LastActive.Equal(entries[j].LastActive) {
			return entries[i].LastActive.Before(entries[j].LastActive)
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries
}

// Recompute rebuilds a match leaderboard from its full submission
// history. Rejected submissions are feed-only and contribute nothing,
// not even activity; round winners collect the winning score recorded
// on the round.
func (e *Engine) Recompute(m *models.Match) []*models.LeaderboardEntry {
	byPlayer := make(map[string]*models.LeaderboardEntry)
	entryFor := func(playerID string) *models.LeaderboardEntry {
		entry, ok := byPlayer[playerID]
		if !ok {
			entry = &models.LeaderboardEntry{PlayerID: playerID}
			byPlayer[playerID] = entry
		}
		return entry
	}
	for _, p := range m.Players {
		entryFor(p)
	}

	for _, round := range m.Rounds {
		for _, sub := range round.Submissions {
			if sub.Status == models.SubmissionStatusRejected {
				continue
			}
			entry := entryFor(sub.PlayerID)
			entry.Submissions++
			if sub.SubmittedAt.After(entry.LastActive) {
				entry.LastActive = sub.SubmittedAt
			}
		}
		if round.Winner != nil {
			entry := entryFor(round.Winner.PlayerID)
			entry.Wins++
			entry.Score += round.Winner.Score
		}
	}

	entries := make([]*models.LeaderboardEntry, 0, len(byPlayer))
	for _, entry := range byPlayer {
		entries = append(entries, entry)
	}
	return e.Rank(entries)
}
