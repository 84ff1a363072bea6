// Package logsync implements the log synchronization protocol: a
// per-match poller over the external thread, and a dispatcher that
// turns newly observed entries into typed update events exactly once.
package logsync

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/rs/zerolog/log"
)

// RelayPublisher forwards dispatched events to a message bus for other
// server-side consumers (e.g. the WebSocket gateway).
type RelayPublisher interface {
	Publish(ctx context.Context, ev events.UpdateEvent) error
}

const relayTimeout = 5 * time.Second

// Dispatcher fans update events out to per-match subscribers. Events
// that carry a log entry id are deduplicated on it, so a consumer never
// sees the same entry twice no matter how often the poller observes it.
type Dispatcher struct {
	mu      sync.Mutex
	nextSub int
	subs    map[string]map[int]func(events.UpdateEvent)
	seen    map[string]map[string]struct{}
	relay   RelayPublisher
}

// NewDispatcher creates a dispatcher. relay may be nil.
func NewDispatcher(relay RelayPublisher) *Dispatcher {
	return &Dispatcher{
		subs:  make(map[string]map[int]func(events.UpdateEvent)),
		seen:  make(map[string]map[string]struct{}),
		relay: relay,
	}
}

// Subscribe registers a callback for one match's events. The returned
// function removes the subscription.
func (d *Dispatcher) Subscribe(matchID string, fn func(events.UpdateEvent)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	id := d.nextSub
	if d.subs[matchID] == nil {
		d.subs[matchID] = make(map[int]func(events.UpdateEvent))
	}
	d.subs[matchID][id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if subs, ok := d.subs[matchID]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(d.subs, matchID)
			}
		}
	}
}

// Dispatch delivers one event to the match's subscribers. A duplicate
// log entry id is dropped; events without an entry id (timer,
// connection) always pass through.
func (d *Dispatcher) Dispatch(ev events.UpdateEvent) {
	d.mu.Lock()
	if ev.EntryID != "" {
		seen := d.seen[ev.MatchID]
		if seen == nil {
			seen = make(map[string]struct{})
			d.seen[ev.MatchID] = seen
		}
		if _, dup := seen[ev.EntryID]; dup {
			d.mu.Unlock()
			log.Debug().
				Str("match_id", ev.MatchID).
				Str("entry_id", ev.EntryID).
				Msg("duplicate entry observation dropped")
			return
		}
		seen[ev.EntryID] = struct{}{}
	}

	targets := make([]func(events.UpdateEvent), 0, len(d.subs[ev.MatchID]))
	for _, fn := range d.subs[ev.MatchID] {
		targets = append(targets, fn)
	}
	d.mu.Unlock()

	for _, fn := range targets {
		fn(ev)
	}

	if d.relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		if err := d.relay.Publish(ctx, ev); err != nil {
			log.Error().
				Err(err).
				Str("match_id", ev.MatchID).
				Str("type", string(ev.Type)).
				Msg("failed to relay update event")
		}
		cancel()
	}
}

// Forget drops all dedup state and subscriptions for a match. Called
// when a match is retired.
func (d *Dispatcher) Forget(matchID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, matchID)
	delete(d.subs, matchID)
}
