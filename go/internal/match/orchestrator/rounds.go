package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StartNextRound advances the match to its next round, or ends the
// match when the configured rounds are exhausted. The round timer it
// arms is the sole trigger for round expiry.
func (o *Orchestrator) StartNextRound(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	m := mm.match

	if m.Status.Terminal() || m.Status == models.MatchStatusPaused {
		return nil
	}
	nextIndex := m.CurrentRoundIndex + 1
	if nextIndex >= m.Config.RoundCount() {
		return o.endGameLocked(ctx, mm)
	}

	now := o.clock.Now()
	duration := time.Duration(m.Config.RoundDurationSec) * time.Second
	round := &models.Round{
		Index:       nextIndex,
		Prompt:      m.Config.Prompts[nextIndex],
		DurationSec: m.Config.RoundDurationSec,
		Difficulty:  m.Config.Difficulty,
		StartTime:   now,
		EndTime:     now.Add(duration),
		Status:      models.RoundStatusActive,
	}

	payload := events.RoundStartPayload{
		RoundIndex:  round.Index,
		Prompt:      round.Prompt,
		Difficulty:  round.Difficulty,
		DurationSec: round.DurationSec,
		StartedAt:   round.StartTime,
		EndsAt:      round.EndTime,
	}
	if _, err := o.appendEntry(ctx, m, thread.EntryKindRoundStart, payload); err != nil {
		// The round never happened as far as the log is concerned, so
		// it must not happen in memory either.
		if errs.IsTransport(err) {
			o.schedulePublishRetryLocked(mm, o.onNextRoundTimerFired)
		}
		return fmt.Errorf("start round %d: %w", nextIndex, err)
	}
	mm.publishFailures = 0

	m.CurrentRoundIndex = nextIndex
	m.Rounds = append(m.Rounds, round)
	m.Status = models.MatchStatusRoundInProgress

	o.armTimer(matchID, timerRound, duration, o.onRoundTimerFired)
	o.armTimer(matchID, timerTick, o.tickInterval, o.onTickTimerFired)
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, fmt.Sprintf("round %d started", round.Index))

	log.Info().
		Str("match_id", matchID.String()).
		Int("round", round.Index).
		Str("prompt", round.Prompt).
		Time("ends_at", round.EndTime).
		Msg("round started")
	return nil
}

// EndCurrentRound closes the active round. It is safe to invoke twice:
// the winner-declaration path and the round timer both land here, and
// whichever arrives second observes the round already closed and does
// nothing.
func (o *Orchestrator) EndCurrentRound(ctx context.Context, matchID uuid.UUID, reason events.RoundEndReason) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	return o.endCurrentRoundLocked(ctx, mm, reason)
}

func (o *Orchestrator) endCurrentRoundLocked(ctx context.Context, mm *managedMatch, reason events.RoundEndReason) error {
	m := mm.match
	round := m.CurrentRound()
	if round == nil || round.Status != models.RoundStatusActive {
		log.Debug().
			Str("match_id", m.ID.String()).
			Str("reason", string(reason)).
			Msg("round already ended; ignoring")
		return nil
	}

	now := o.clock.Now()
	payload := events.RoundEndPayload{
		RoundIndex: round.Index,
		Reason:     reason,
		EndedAt:    now,
	}
	if w := round.Winner; w != nil {
		payload.WinnerPlayerID = w.PlayerID
		payload.WinningSubmissionID = w.SubmissionID.String()
		payload.WinningScore = w.Score
	}
	if _, err := o.appendEntry(ctx, m, thread.EntryKindRoundEnd, payload); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Int("round", round.Index).Msg("failed to publish round end")
		if errs.IsTransport(err) {
			// The round is not closed until the log says so. Leave it
			// active and retry the same transition.
			o.cancelTimer(m.ID, timerRound)
			o.cancelTimer(m.ID, timerTick)
			o.schedulePublishRetryLocked(mm, func(id uuid.UUID) {
				if rerr := o.EndCurrentRound(context.Background(), id, reason); rerr != nil {
					log.Error().Err(rerr).Str("match_id", id.String()).Msg("round end retry failed")
				}
			})
			return err
		}
	}
	mm.publishFailures = 0

	round.Status = models.RoundStatusCompleted
	if m.Status == models.MatchStatusRoundInProgress {
		m.Status = models.MatchStatusRoundEnded
	}

	o.cancelTimer(m.ID, timerRound)
	o.cancelTimer(m.ID, timerTick)
	o.publishLeaderboardLocked(ctx, m)
	o.saveMatch(ctx, m)
	o.dispatchStatus(m, fmt.Sprintf("round %d ended (%s)", round.Index, reason))

	log.Info().
		Str("match_id", m.ID.String()).
		Int("round", round.Index).
		Str("reason", string(reason)).
		Bool("has_winner", round.Winner != nil).
		Msg("round ended")

	if !m.Status.Terminal() {
		o.armTimer(m.ID, timerNextRound, o.nextRoundDelay, o.onNextRoundTimerFired)
	}
	return nil
}

// onRoundTimerFired is the timer path to round expiry. The match is
// re-resolved by id; a match evicted since the timer was armed is
// simply gone.
func (o *Orchestrator) onRoundTimerFired(matchID uuid.UUID) {
	mm := o.registry.Get(matchID)
	if mm == nil {
		log.Debug().Str("match_id", matchID.String()).Msg("round timer fired for evicted match")
		return
	}

	log.Info().Str("match_id", matchID.String()).Msg("round timer expired")
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if err := o.endCurrentRoundLocked(context.Background(), mm, events.RoundEndReasonTimeout); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("round expiry failed")
	}
}

// onNextRoundTimerFired starts the next round after the fixed
// post-round delay.
func (o *Orchestrator) onNextRoundTimerFired(matchID uuid.UUID) {
	if err := o.StartNextRound(context.Background(), matchID); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to start next round")
	}
}

// onTickTimerFired emits a coarse countdown event and re-arms itself
// while the round is running.
func (o *Orchestrator) onTickTimerFired(matchID uuid.UUID) {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return
	}

	mm.mu.Lock()
	m := mm.match
	round := m.CurrentRound()
	if m.Status != models.MatchStatusRoundInProgress || round == nil || round.Status != models.RoundStatusActive {
		mm.mu.Unlock()
		return
	}
	remaining := int(round.EndTime.Sub(o.clock.Now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	tick := events.TimerPayload{
		RoundIndex:   round.Index,
		RemainingSec: remaining,
		TickedAt:     o.clock.Now(),
	}
	mm.mu.Unlock()

	if o.dispatch != nil {
		if ev, err := events.NewUpdateEvent(matchID.String(), events.UpdateTypeTimer, "", o.clock.Now(), tick); err == nil {
			o.dispatch.Dispatch(ev)
		}
	}
	o.armTimer(matchID, timerTick, o.tickInterval, o.onTickTimerFired)
}

// publishLeaderboardLocked appends a leaderboard snapshot entry. The
// caller holds the match lock.
func (o *Orchestrator) publishLeaderboardLocked(ctx context.Context, m *models.Match) {
	o.scorer.Rank(m.Leaderboard)
	entries := make([]models.LeaderboardEntry, len(m.Leaderboard))
	for i, e := range m.Leaderboard {
		entries[i] = *e
	}
	if _, err := o.appendEntry(ctx, m, thread.EntryKindLeaderboard, events.LeaderboardPayload{
		Entries:    entries,
		SnapshotAt: o.clock.Now(),
	}); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Msg("failed to publish leaderboard snapshot")
	}
}

// PublishLeaderboardSnapshot appends a leaderboard entry for a live
// match. The periodic snapshot job calls this for every active match
// so late-joining clients can bootstrap from the log alone.
func (o *Orchestrator) PublishLeaderboardSnapshot(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	o.publishLeaderboardLocked(ctx, mm.match)
	return nil
}
