package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus defines the lifecycle state of a single round.
type RoundStatus string

const (
	RoundStatusPending   RoundStatus = "PENDING"
	RoundStatusActive    RoundStatus = "ACTIVE"
	RoundStatusCompleted RoundStatus = "COMPLETED"
	RoundStatusCancelled RoundStatus = "CANCELLED"
)

// RoundWinner records the winning submission of a round. At most one
// winner is ever set per round, and once set it is never changed.
type RoundWinner struct {
	PlayerID     string    `json:"player_id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Score        int       `json:"score"`
}

// Round is one timed prompt-and-submit cycle within a match. A round is
// immutable once its status is COMPLETED.
type Round struct {
	Index       int             `json:"index"`
	Prompt      string          `json:"prompt"`
	DurationSec int             `json:"duration_sec"`
	Difficulty  MatchDifficulty `json:"difficulty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Status      RoundStatus     `json:"status"`
	Submissions []*Submission   `json:"submissions"`
	Winner      *RoundWinner    `json:"winner,omitempty"`
}

// SubmissionByID returns the submission with the given ID, or nil.
func (r *Round) SubmissionByID(id uuid.UUID) *Submission {
	for _, s := range r.Submissions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Clone returns a deep copy of the round.
func (r *Round) Clone() *Round {
	out := *r
	out.Submissions = make([]*Submission, len(r.Submissions))
	for i, s := range r.Submissions {
		sub := *s
		if s.Validation != nil {
			verdict := *s.Validation
			verdict.ContentWarnings = append([]string(nil), s.Validation.ContentWarnings...)
			sub.Validation = &verdict
		}
		out.Submissions[i] = &sub
	}
	if r.Winner != nil {
		winner := *r.Winner
		out.Winner = &winner
	}
	return &out
}
