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

// PauseGame suspends a match. The remaining round time is captured so
// resuming never extends a round beyond its original budget.
func (o *Orchestrator) PauseGame(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	m := mm.match

	switch m.Status {
	case models.MatchStatusActive, models.MatchStatusRoundInProgress:
	default:
		return &errs.LogicError{Op: "pause match", Detail: fmt.Sprintf("cannot pause from %s", m.Status)}
	}

	mm.pausedFrom = m.Status
	mm.pausedRemaining = 0
	if round := m.CurrentRound(); round != nil && round.Status == models.RoundStatusActive {
		if remaining := round.EndTime.Sub(o.clock.Now()); remaining > 0 {
			mm.pausedRemaining = remaining
		}
	}

	o.cancelTimer(matchID, timerRound)
	o.cancelTimer(matchID, timerTick)
	o.cancelTimer(matchID, timerNextRound)

	m.Status = models.MatchStatusPaused
	if err := o.publishStatus(ctx, m, "match paused"); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to publish pause")
	}
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, "match paused")

	log.Info().
		Str("match_id", matchID.String()).
		Dur("remaining", mm.pausedRemaining).
		Msg("match paused")
	return nil
}

// ResumeGame returns a paused match to the state it paused from. The
// round timer is re-armed with the remaining time recorded at pause,
// not the full round duration.
func (o *Orchestrator) ResumeGame(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	m := mm.match

	if m.Status != models.MatchStatusPaused {
		return &errs.LogicError{Op: "resume match", Detail: fmt.Sprintf("cannot resume from %s", m.Status)}
	}

	m.Status = mm.pausedFrom
	mm.publishFailures = 0
	switch m.Status {
	case models.MatchStatusRoundInProgress:
		round := m.CurrentRound()
		if round != nil && round.Status == models.RoundStatusActive {
			round.EndTime = o.clock.Now().Add(mm.pausedRemaining)
			o.armTimer(matchID, timerRound, mm.pausedRemaining, o.onRoundTimerFired)
			o.armTimer(matchID, timerTick, o.tickInterval, o.onTickTimerFired)
		}
	case models.MatchStatusActive, models.MatchStatusRoundEnded:
		// A match paused between rounds resumes by scheduling the next
		// round transition.
		o.armTimer(matchID, timerNextRound, o.nextRoundDelay, o.onNextRoundTimerFired)
	}

	if err := o.publishStatus(ctx, m, "match resumed"); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to publish resume")
	}
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, "match resumed")

	log.Info().
		Str("match_id", matchID.String()).
		Str("status", string(m.Status)).
		Dur("remaining", mm.pausedRemaining).
		Msg("match resumed")
	return nil
}

// pausePublishStalledLocked pauses a match whose boundary publishes
// keep failing. No status entry is appended, the log is the thing that
// is down; resuming retries the stalled transition. Caller holds the
// match lock.
func (o *Orchestrator) pausePublishStalledLocked(mm *managedMatch) {
	m := mm.match
	if m.Status.Terminal() || m.Status == models.MatchStatusPaused {
		return
	}

	mm.pausedFrom = m.Status
	mm.pausedRemaining = 0
	if round := m.CurrentRound(); round != nil && round.Status == models.RoundStatusActive {
		if remaining := round.EndTime.Sub(o.clock.Now()); remaining > 0 {
			mm.pausedRemaining = remaining
		}
	}
	mm.publishFailures = 0

	o.cancelMatchTimers(m.ID)
	m.Status = models.MatchStatusPaused
	o.saveMatch(context.Background(), m)
	o.dispatchStatus(m, "match paused")

	log.Warn().
		Str("match_id", m.ID.String()).
		Str("paused_from", string(mm.pausedFrom)).
		Msg("match paused after repeated publish failures")
}

// CancelGame terminates a match from any non-terminal state, clears
// every timer it owns and evicts it from live memory.
func (o *Orchestrator) CancelGame(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	m := mm.match

	if m.Status.Terminal() {
		return &errs.LogicError{Op: "cancel match", Detail: fmt.Sprintf("match already %s", m.Status)}
	}

	o.cancelMatchTimers(matchID)
	if round := m.CurrentRound(); round != nil && round.Status == models.RoundStatusActive {
		round.Status = models.RoundStatusCancelled
	}

	now := o.clock.Now()
	m.Status = models.MatchStatusCancelled
	m.EndedAt = &now

	if err := o.publishStatus(ctx, m, "match cancelled"); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to publish cancellation")
	}
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, "match cancelled")
	o.retire(matchID)

	log.Info().Str("match_id", matchID.String()).Msg("match cancelled")
	return nil
}

// EndGame finalizes a match whose rounds are exhausted.
func (o *Orchestrator) EndGame(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	return o.endGameLocked(ctx, mm)
}

// endGameLocked computes final standings, publishes the results
// summary, stops polling and evicts the match. From here the thread is
// the only remaining record.
func (o *Orchestrator) endGameLocked(ctx context.Context, mm *managedMatch) error {
	m := mm.match
	if m.Status.Terminal() {
		return nil
	}

	o.cancelMatchTimers(m.ID)

	now := o.clock.Now()
	o.scorer.Rank(m.Leaderboard)
	standings := make([]models.LeaderboardEntry, len(m.Leaderboard))
	for i, e := range m.Leaderboard {
		standings[i] = *e
	}

	prizes := make(map[string]string)
	for i, prize := range m.Config.Prizes {
		if i >= len(standings) {
			break
		}
		prizes[standings[i].PlayerID] = prize
	}

	// The results entry is the final record; the match is not complete
	// until it lands in the log.
	if _, err := o.appendEntry(ctx, m, thread.EntryKindResults, events.ResultsPayload{
		MatchID:   m.ID.String(),
		Standings: standings,
		Prizes:    prizes,
		EndedAt:   now,
	}); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Msg("failed to publish results summary")
		if errs.IsTransport(err) {
			o.schedulePublishRetryLocked(mm, o.onEndGameRetry)
			return err
		}
	}
	mm.publishFailures = 0

	m.Status = models.MatchStatusCompleted
	m.EndedAt = &now

	if err := o.publishStatus(ctx, m, "match completed"); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Msg("failed to publish final status")
	}

	if o.store != nil {
		for _, entry := range standings {
			if err := o.store.UpsertPlayerStats(context.WithoutCancel(ctx), m.Community, entry); err != nil {
				log.Error().Err(err).Str("player_id", entry.PlayerID).Msg("failed to persist final player stats")
			}
		}
	}
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, "match completed")
	o.retire(m.ID)

	log.Info().
		Str("match_id", m.ID.String()).
		Int("players", len(m.Players)).
		Int("rounds", len(m.Rounds)).
		Msg("match completed")
	return nil
}

// onEndGameRetry re-attempts match finalization after a failed results
// publish.
func (o *Orchestrator) onEndGameRetry(matchID uuid.UUID) {
	if err := o.EndGame(context.Background(), matchID); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to finalize match")
	}
}

// retire stops log polling and evicts the match from the registry.
func (o *Orchestrator) retire(matchID uuid.UUID) {
	if o.pollers != nil {
		o.pollers.StopMatch(matchID)
	}
	o.registry.Remove(matchID)
}
