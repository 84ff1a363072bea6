package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus defines the review state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPendingReview SubmissionStatus = "PENDING_REVIEW"
	SubmissionStatusApproved      SubmissionStatus = "APPROVED"
	SubmissionStatusRejected      SubmissionStatus = "REJECTED"
)

// ValidationResult is the verdict returned by the content validator for
// a submitted media reference.
type ValidationResult struct {
	IsValid            bool     `json:"is_valid"`
	IsNSFW             bool     `json:"is_nsfw"`
	ContentWarnings    []string `json:"content_warnings,omitempty"`
	ViolatesPolicy     bool     `json:"violates_policy"`
	ModerationRequired bool     `json:"moderation_required"`
}

// Rejected reports whether the verdict disqualifies the submission.
func (v ValidationResult) Rejected() bool {
	return !v.IsValid || v.ViolatesPolicy
}

// Submission is one player's entry for a round. Only Status and
// Validation transition after creation; everything else is immutable.
type Submission struct {
	ID          uuid.UUID         `json:"id"`
	PlayerID    string            `json:"player_id"`
	RoundIndex  int               `json:"round_index"`
	MediaRef    string            `json:"media_ref"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Validation  *ValidationResult `json:"validation,omitempty"`
	Status      SubmissionStatus  `json:"status"`
	EntryID     string            `json:"entry_id,omitempty"` // thread entry holding this submission
}
