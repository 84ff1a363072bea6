package events

import (
	"time"

	"github.com/mcdev12/snapmatch/go/internal/models"
)

// Event payload types shared between the orchestrator, the thread
// entries it publishes, and every downstream consumer. The payload a
// poller observes in a log entry is the payload the orchestrator wrote.

// GamePayload describes the match announcement entry under the root
// post. It carries enough for a late-joining client to bootstrap.
type GamePayload struct {
	MatchID    string                 `json:"match_id"`
	Title      string                 `json:"title"`
	Community  string                 `json:"community"`
	Rounds     int                    `json:"rounds"`
	Difficulty models.MatchDifficulty `json:"difficulty"`
	PlayerCap  int                    `json:"player_cap,omitempty"`
	Prizes     []string               `json:"prizes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// RoundStartPayload is the payload for a round_start event.
type RoundStartPayload struct {
	RoundIndex  int                    `json:"round_index"`
	Prompt      string                 `json:"prompt"`
	Difficulty  models.MatchDifficulty `json:"difficulty"`
	DurationSec int                    `json:"duration_sec"`
	StartedAt   time.Time              `json:"started_at"`
	EndsAt      time.Time              `json:"ends_at"`
}

// RoundEndReason says which path ended the round.
type RoundEndReason string

const (
	RoundEndReasonWinner    RoundEndReason = "winner"
	RoundEndReasonTimeout   RoundEndReason = "timeout"
	RoundEndReasonCancelled RoundEndReason = "cancelled"
)

// RoundEndPayload is the payload for a round_end event. Winner fields
// are empty when the round expired without a valid submission.
type RoundEndPayload struct {
	RoundIndex          int            `json:"round_index"`
	Reason              RoundEndReason `json:"reason"`
	WinnerPlayerID      string         `json:"winner_player_id,omitempty"`
	WinningSubmissionID string         `json:"winning_submission_id,omitempty"`
	WinningScore        int            `json:"winning_score,omitempty"`
	EndedAt             time.Time      `json:"ended_at"`
}

// SubmissionPayload is the payload for a submission event.
type SubmissionPayload struct {
	SubmissionID string                  `json:"submission_id"`
	PlayerID     string                  `json:"player_id"`
	RoundIndex   int                     `json:"round_index"`
	MediaRef     string                  `json:"media_ref"`
	Status       models.SubmissionStatus `json:"status"`
	SubmittedAt  time.Time               `json:"submitted_at"`
}

// LeaderboardPayload is the payload for a leaderboard event and for
// leaderboard snapshot entries in the thread.
type LeaderboardPayload struct {
	Entries    []models.LeaderboardEntry `json:"entries"`
	SnapshotAt time.Time                 `json:"snapshot_at"`
}

// StatusPayload is the payload for a status event.
type StatusPayload struct {
	Status    models.MatchStatus `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	ChangedAt time.Time          `json:"changed_at"`
}

// TimerPayload carries coarse countdown updates for the active round.
type TimerPayload struct {
	RoundIndex   int       `json:"round_index"`
	RemainingSec int       `json:"remaining_sec"`
	TickedAt     time.Time `json:"ticked_at"`
}

// ConnectionState is the poller's view of log availability.
type ConnectionState string

const (
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
)

// ConnectionPayload is the payload for a connection event.
type ConnectionPayload struct {
	State  ConnectionState `json:"state"`
	Detail string          `json:"detail,omitempty"`
	At     time.Time       `json:"at"`
}

// ResultsPayload is the payload for the final results entry appended
// when a match ends. Prizes are mapped to standings in rank order.
type ResultsPayload struct {
	MatchID   string                    `json:"match_id"`
	Standings []models.LeaderboardEntry `json:"standings"`
	Prizes    map[string]string         `json:"prizes,omitempty"` // player id -> prize
	EndedAt   time.Time                 `json:"ended_at"`
}

// PlayerJoinedPayload records a player joining while the match accepts
// players.
type PlayerJoinedPayload struct {
	PlayerID string    `json:"player_id"`
	JoinedAt time.Time `json:"joined_at"`
}
