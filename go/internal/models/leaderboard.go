package models

import "time"

// LeaderboardEntry is one player's cumulative standing within a match.
// Entries are monotonically updated and never removed while the match
// is live.
type LeaderboardEntry struct {
	PlayerID    string    `json:"player_id"`
	Score       int       `json:"score"`
	Wins        int       `json:"wins"`
	Submissions int       `json:"submissions"`
	LastActive  time.Time `json:"last_active"`
	Rank        int       `json:"rank,omitempty"`
}
