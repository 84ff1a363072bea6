package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// timerKind distinguishes the timers a match can own concurrently.
type timerKind string

const (
	timerRound     timerKind = "round"         // round expiry
	timerNextRound timerKind = "next_round"    // delay before the next round starts
	timerTick      timerKind = "tick"          // coarse countdown broadcast
	timerRetry     timerKind = "publish_retry" // re-attempt of a failed boundary publish
)

type timerKey struct {
	matchID uuid.UUID
	kind    timerKind
}

// armTimer atomically replaces any existing timer for (match, kind) and
// starts a goroutine that fires fn with the match id when it expires.
// Callbacks receive the id only and re-resolve the match through the
// registry, so a fired timer for an evicted match is a no-op.
func (o *Orchestrator) armTimer(matchID uuid.UUID, kind timerKind, d time.Duration, fn func(uuid.UUID)) {
	timer := o.clock.NewTimer(d)

	o.timersMu.Lock()
	key := timerKey{matchID: matchID, kind: kind}
	if existing, ok := o.timers[key]; ok {
		stopAndDrainTimer(existing)
		log.Debug().Str("match_id", matchID.String()).Str("kind", string(kind)).Msg("replaced existing timer")
	}
	o.timers[key] = timer
	o.timersMu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
			o.timersMu.Lock()
			// Only fire if we are still the registered timer; a
			// replace or cancel that raced the expiry wins.
			if current, ok := o.timers[key]; !ok || current != timer {
				o.timersMu.Unlock()
				return
			}
			delete(o.timers, key)
			o.timersMu.Unlock()
			fn(matchID)
		case <-o.shutdownCh:
			stopAndDrainTimer(timer)
		}
	}()
}

// schedulePublishRetryLocked arms a backoff retry after a boundary
// publish failed. Once the attempt limit is exhausted the match is
// paused instead, so its state survives a prolonged log outage. Caller
// holds the match lock.
func (o *Orchestrator) schedulePublishRetryLocked(mm *managedMatch, fn func(uuid.UUID)) {
	mm.publishFailures++
	if mm.publishFailures > o.publishRetryLimit {
		log.Warn().
			Str("match_id", mm.match.ID.String()).
			Int("attempts", mm.publishFailures-1).
			Msg("publish retries exhausted, pausing match")
		o.pausePublishStalledLocked(mm)
		return
	}

	delay := o.publishRetryDelay
	for i := 1; i < mm.publishFailures; i++ {
		delay *= 2
	}
	log.Warn().
		Str("match_id", mm.match.ID.String()).
		Int("attempt", mm.publishFailures).
		Dur("retry_in", delay).
		Msg("boundary publish failed, retry scheduled")
	o.armTimer(mm.match.ID, timerRetry, delay, fn)
}

// cancelTimer stops and removes one timer for a match.
func (o *Orchestrator) cancelTimer(matchID uuid.UUID, kind timerKind) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	key := timerKey{matchID: matchID, kind: kind}
	if timer, ok := o.timers[key]; ok {
		stopAndDrainTimer(timer)
		delete(o.timers, key)
		log.Debug().Str("match_id", matchID.String()).Str("kind", string(kind)).Msg("cancelled timer")
	}
}

// cancelMatchTimers clears every timer a match owns. Required on any
// terminal transition so no orphaned callback can touch evicted state.
func (o *Orchestrator) cancelMatchTimers(matchID uuid.UUID) {
	o.timersMu.Lock()
	defer o.timersMu.Unlock()

	for key, timer := range o.timers {
		if key.matchID == matchID {
			stopAndDrainTimer(timer)
			delete(o.timers, key)
		}
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel to
// prevent goroutine leaks, per the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
