package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Submit handles one player entry for the active round. Submissions are
// accepted in receipt order; the first one whose validation verdict is
// valid wins the round, and no later submission can unseat it. A
// rejected verdict is recorded as a rejected submission, visible in the
// feed but never scored.
func (o *Orchestrator) Submit(ctx context.Context, matchID uuid.UUID, playerID, mediaRef string, roundIndex int) (*models.Submission, error) {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return nil, &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	m := mm.match
	if err := o.checkSubmittable(m, roundIndex); err != nil {
		mm.mu.Unlock()
		return nil, err
	}
	community := m.Community
	mm.mu.Unlock()

	// Validation runs outside the match lock so a pause or cancel can
	// land while the call is in flight; the stale verdict is discarded
	// by the re-check below.
	valCtx, cancel := context.WithTimeout(ctx, o.validateTimeout)
	verdict, err := o.validator.Validate(valCtx, mediaRef, community)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	mm = o.registry.Get(matchID)
	if mm == nil {
		return nil, &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m = mm.match
	if err := o.checkSubmittable(m, roundIndex); err != nil {
		log.Info().
			Str("match_id", matchID.String()).
			Str("player_id", playerID).
			Msg("discarding in-flight submission; match state changed during validation")
		return nil, err
	}

	rejected := verdict.Rejected()
	if !rejected && !m.HasPlayer(playerID) {
		if m.Config.PlayerCap > 0 && len(m.Players) >= m.Config.PlayerCap {
			return nil, &errs.ContextError{Op: "submit", Reason: "player cap reached"}
		}
		m.Players = append(m.Players, playerID)
		m.Leaderboard = append(m.Leaderboard, &models.LeaderboardEntry{PlayerID: playerID})
	}

	now := o.clock.Now()
	round := m.CurrentRound()
	sub := &models.Submission{
		ID:          uuid.New(),
		PlayerID:    playerID,
		RoundIndex:  round.Index,
		MediaRef:    mediaRef,
		SubmittedAt: now,
		Validation:  &verdict,
		Status:      submissionStatusFor(verdict),
	}

	entryID, err := o.appendEntry(ctx, m, thread.EntryKindSubmission, events.SubmissionPayload{
		SubmissionID: sub.ID.String(),
		PlayerID:     playerID,
		RoundIndex:   round.Index,
		MediaRef:     mediaRef,
		Status:       sub.Status,
		SubmittedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	sub.EntryID = entryID

	round.Submissions = append(round.Submissions, sub)

	if rejected {
		// Visible in the feed only. A rejected submission never touches
		// the leaderboard, so it cannot shift activity tie-breaks.
		o.saveMatch(ctx, m)
		log.Info().
			Str("match_id", matchID.String()).
			Str("player_id", playerID).
			Str("submission_id", sub.ID.String()).
			Int("round", round.Index).
			Msg("submission rejected by validation")
		return sub, nil
	}

	entry := m.LeaderboardEntryFor(playerID)
	entry.Submissions++
	entry.LastActive = now

	if round.Winner == nil {
		o.declareWinnerLocked(ctx, mm, round, sub, entry)
	}

	if o.store != nil {
		if err := o.store.UpsertPlayerStats(context.WithoutCancel(ctx), community, *entry); err != nil {
			log.Error().Err(err).Str("player_id", playerID).Msg("failed to persist player stats")
		}
	}
	o.saveMatch(ctx, m)

	log.Info().
		Str("match_id", matchID.String()).
		Str("player_id", playerID).
		Str("submission_id", sub.ID.String()).
		Str("status", string(sub.Status)).
		Int("round", round.Index).
		Msg("submission recorded")
	return sub, nil
}

// checkSubmittable enforces the submit preconditions against the
// current match state. Caller holds the match lock.
func (o *Orchestrator) checkSubmittable(m *models.Match, roundIndex int) error {
	if m.Status != models.MatchStatusRoundInProgress {
		return &errs.ContextError{Op: "submit", Reason: fmt.Sprintf("match is %s, not accepting submissions", m.Status)}
	}
	round := m.CurrentRound()
	if round == nil || round.Index != roundIndex {
		return &errs.ContextError{Op: "submit", Reason: fmt.Sprintf("round %d is not the active round", roundIndex)}
	}
	if !o.clock.Now().Before(round.EndTime) {
		return &errs.ContextError{Op: "submit", Reason: fmt.Sprintf("round %d has ended", roundIndex)}
	}
	return nil
}

// declareWinnerLocked sets the round winner and ends the round early.
// The winner check is a plain "is there already a winner" guard: a
// second valid submission can never retroactively unseat the first.
func (o *Orchestrator) declareWinnerLocked(ctx context.Context, mm *managedMatch, round *models.Round, sub *models.Submission, entry *models.LeaderboardEntry) {
	if round.Winner != nil {
		// Refused rather than applied; reaching here is a defect.
		log.Error().
			Str("match_id", mm.match.ID.String()).
			Int("round", round.Index).
			Msg("refusing second winner declaration")
		return
	}

	score := o.scorer.Score(sub, round)
	round.Winner = &models.RoundWinner{
		PlayerID:     sub.PlayerID,
		SubmissionID: sub.ID,
		Score:        score,
	}
	entry.Wins++
	entry.Score += score

	log.Info().
		Str("match_id", mm.match.ID.String()).
		Str("player_id", sub.PlayerID).
		Int("round", round.Index).
		Int("score", score).
		Msg("round winner declared")

	if err := o.endCurrentRoundLocked(ctx, mm, events.RoundEndReasonWinner); err != nil {
		log.Error().Err(err).Str("match_id", mm.match.ID.String()).Msg("failed to end round after winner")
	}
}

func submissionStatusFor(verdict models.ValidationResult) models.SubmissionStatus {
	switch {
	case verdict.Rejected():
		return models.SubmissionStatusRejected
	case verdict.ModerationRequired:
		return models.SubmissionStatusPendingReview
	default:
		return models.SubmissionStatusApproved
	}
}
