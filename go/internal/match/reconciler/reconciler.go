// Package reconciler maintains a client-side projection of match state
// built purely from the stream of update events, with no independent
// source of truth. Applying the same event twice leaves the projection
// unchanged.
package reconciler

import (
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

// RoundView is the projection of the round currently in progress.
type RoundView struct {
	Index        int                    `json:"index"`
	Prompt       string                 `json:"prompt"`
	Difficulty   models.MatchDifficulty `json:"difficulty"`
	StartedAt    time.Time              `json:"started_at"`
	EndsAt       time.Time              `json:"ends_at"`
	RemainingSec int                    `json:"remaining_sec"`
}

// FeedItem is one submission row in the client feed.
type FeedItem struct {
	EntryID      string                  `json:"entry_id"`
	SubmissionID string                  `json:"submission_id"`
	PlayerID     string                  `json:"player_id"`
	RoundIndex   int                     `json:"round_index"`
	MediaRef     string                  `json:"media_ref"`
	Status       models.SubmissionStatus `json:"status"`
	SubmittedAt  time.Time               `json:"submitted_at"`
}

// MatchView is the full client projection for one match.
type MatchView struct {
	MatchID      string                    `json:"match_id"`
	Status       models.MatchStatus        `json:"status"`
	CurrentRound *RoundView                `json:"current_round,omitempty"`
	Winners      map[int]string            `json:"winners,omitempty"` // round index -> player id
	Feed         []FeedItem                `json:"feed"`
	Leaderboard  []models.LeaderboardEntry `json:"leaderboard"`
	Connected    bool                      `json:"connected"`
}

// Reconciler folds update events into per-match views.
type Reconciler struct {
	mu      sync.Mutex
	views   map[string]*MatchView
	applied map[string]map[string]struct{}
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		views:   make(map[string]*MatchView),
		applied: make(map[string]map[string]struct{}),
	}
}

// View returns a copy of the current projection for a match, or nil if
// no event for it has been seen.
func (r *Reconciler) View(matchID string) *MatchView {
	r.mu.Lock()
	defer r.mu.Unlock()

	view, ok := r.views[matchID]
	if !ok {
		return nil
	}
	out := *view
	if view.CurrentRound != nil {
		round := *view.CurrentRound
		out.CurrentRound = &round
	}
	out.Feed = append([]FeedItem(nil), view.Feed...)
	out.Leaderboard = append([]models.LeaderboardEntry(nil), view.Leaderboard...)
	out.Winners = make(map[int]string, len(view.Winners))
	for k, v := range view.Winners {
		out.Winners[k] = v
	}
	return &out
}

// Apply folds one event into the projection. Events carrying a log
// entry id already applied are no-ops, so duplicate delivery can never
// double-count a score or duplicate a feed row.
func (r *Reconciler) Apply(ev events.UpdateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.EntryID != "" {
		seen := r.applied[ev.MatchID]
		if seen == nil {
			seen = make(map[string]struct{})
			r.applied[ev.MatchID] = seen
		}
		if _, dup := seen[ev.EntryID]; dup {
			return nil
		}
		seen[ev.EntryID] = struct{}{}
	}

	view, ok := r.views[ev.MatchID]
	if !ok {
		view = &MatchView{
			MatchID:   ev.MatchID,
			Winners:   make(map[int]string),
			Connected: true,
		}
		r.views[ev.MatchID] = view
	}

	payload, err := events.ParseUpdatePayload(ev)
	if err != nil {
		return fmt.Errorf("parse %s payload: %w", ev.Type, err)
	}

	switch p := payload.(type) {
	case events.RoundStartPayload:
		view.Status = models.MatchStatusRoundInProgress
		view.CurrentRound = &RoundView{
			Index:        p.RoundIndex,
			Prompt:       p.Prompt,
			Difficulty:   p.Difficulty,
			StartedAt:    p.StartedAt,
			EndsAt:       p.EndsAt,
			RemainingSec: p.DurationSec,
		}

	case events.RoundEndPayload:
		if p.WinnerPlayerID != "" {
			view.Winners[p.RoundIndex] = p.WinnerPlayerID
		}
		if view.CurrentRound != nil && view.CurrentRound.Index == p.RoundIndex {
			view.CurrentRound = nil
			view.Status = models.MatchStatusRoundEnded
		}

	case events.SubmissionPayload:
		view.Feed = append(view.Feed, FeedItem{
			EntryID:      ev.EntryID,
			SubmissionID: p.SubmissionID,
			PlayerID:     p.PlayerID,
			RoundIndex:   p.RoundIndex,
			MediaRef:     p.MediaRef,
			Status:       p.Status,
			SubmittedAt:  p.SubmittedAt,
		})

	case events.LeaderboardPayload:
		view.Leaderboard = p.Entries

	case events.StatusPayload:
		view.Status = p.Status

	case events.TimerPayload:
		if view.CurrentRound != nil && view.CurrentRound.Index == p.RoundIndex {
			view.CurrentRound.RemainingSec = p.RemainingSec
		}

	case events.ConnectionPayload:
		view.Connected = p.State == events.ConnectionStateConnected
	}

	return nil
}
