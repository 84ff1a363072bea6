package logsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxBackoff   = 2 * time.Minute
	readTimeout         = 10 * time.Second
)

// Manager runs one poller per active match. The log is polled, not
// pushed: each cycle fetches the full comment tree, drops entry ids
// already seen and hands anything new to the dispatcher.
type Manager struct {
	reader     thread.Reader
	dispatcher *Dispatcher
	clock      clockwork.Clock
	interval   time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithClock swaps the wall clock, for tests.
func WithClock(clock clockwork.Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates a poller manager.
func NewManager(reader thread.Reader, dispatcher *Dispatcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		reader:     reader,
		dispatcher: dispatcher,
		clock:      clockwork.NewRealClock(),
		interval:   defaultPollInterval,
		maxBackoff: defaultMaxBackoff,
		cancels:    make(map[uuid.UUID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartMatch begins polling a match thread. Starting an already polled
// match is a no-op.
func (m *Manager) StartMatch(matchID uuid.UUID, handle models.ThreadHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.cancels[matchID]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancels[matchID] = cancel

	p := &poller{
		manager:   m,
		matchID:   matchID,
		handle:    handle,
		seen:      make(map[string]struct{}),
		connected: true,
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		p.run(ctx)
	}()

	log.Info().
		Str("match_id", matchID.String()).
		Str("thread_id", handle.ThreadID).
		Dur("interval", m.interval).
		Msg("log polling started")
}

// StopMatch stops polling a match thread and drops its dedup state.
func (m *Manager) StopMatch(matchID uuid.UUID) {
	m.mu.Lock()
	cancel, ok := m.cancels[matchID]
	if ok {
		delete(m.cancels, matchID)
	}
	m.mu.Unlock()

	if ok {
		cancel()
		m.dispatcher.Forget(matchID.String())
		log.Info().Str("match_id", matchID.String()).Msg("log polling stopped")
	}
}

// StopAll stops every poller and waits for them to exit.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for id, cancel := range m.cancels {
		cancel()
		delete(m.cancels, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// poller tracks one match thread. seen deduplicates individual entry
// ids across polls, since the log may report an entry more than once
// and in any order.
type poller struct {
	manager   *Manager
	matchID   uuid.UUID
	handle    models.ThreadHandle
	seen      map[string]struct{}
	connected bool
	failures  int
}

func (p *poller) run(ctx context.Context) {
	timer := p.manager.clock.NewTimer(p.manager.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			timer.Reset(p.pollOnce(ctx))
		}
	}
}

// pollOnce performs one fetch-and-diff cycle and returns the wait
// before the next one.
func (p *poller) pollOnce(ctx context.Context) time.Duration {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	entries, err := p.manager.reader.ReadThread(readCtx, p.handle)
	cancel()

	if err != nil {
		return p.backoff(err)
	}

	if !p.connected {
		p.connected = true
		p.failures = 0
		p.emitConnection(events.ConnectionStateConnected, "log reachable again")
		log.Info().Str("match_id", p.matchID.String()).Msg("log connection recovered")
	}

	p.dispatchNew(entries)
	return p.manager.interval
}

// dispatchNew emits one update event per entry id not seen in any
// earlier cycle, in discovery order. Every fetched entry is checked
// individually: an eventually consistent read may omit old entries
// while carrying new ones, so no aggregate of the tree can gate the
// scan.
func (p *poller) dispatchNew(entries []thread.Entry) {
	for _, entry := range entries {
		if _, dup := p.seen[entry.ID]; dup {
			continue
		}
		p.seen[entry.ID] = struct{}{}

		ev, ok := p.convert(entry)
		if !ok {
			continue
		}
		p.manager.dispatcher.Dispatch(ev)
	}
}

// convert maps a thread entry to its update event. Entries with no
// client-facing event type (game announcement, player join) are
// observed but not dispatched.
func (p *poller) convert(entry thread.Entry) (events.UpdateEvent, bool) {
	var typ events.UpdateType
	data := entry.Payload

	switch entry.Kind {
	case thread.EntryKindRoundStart:
		typ = events.UpdateTypeRoundStart
	case thread.EntryKindRoundEnd:
		typ = events.UpdateTypeRoundEnd
	case thread.EntryKindSubmission:
		typ = events.UpdateTypeSubmission
	case thread.EntryKindLeaderboard:
		typ = events.UpdateTypeLeaderboard
	case thread.EntryKindStatus:
		typ = events.UpdateTypeStatus
	case thread.EntryKindResults:
		// Final standings surface as a leaderboard update.
		var results events.ResultsPayload
		if err := json.Unmarshal(entry.Payload, &results); err != nil {
			log.Error().Err(err).Str("entry_id", entry.ID).Msg("malformed results entry")
			return events.UpdateEvent{}, false
		}
		converted, err := json.Marshal(events.LeaderboardPayload{
			Entries:    results.Standings,
			SnapshotAt: results.EndedAt,
		})
		if err != nil {
			return events.UpdateEvent{}, false
		}
		typ = events.UpdateTypeLeaderboard
		data = converted
	default:
		return events.UpdateEvent{}, false
	}

	return events.UpdateEvent{
		ID:        uuid.New().String(),
		MatchID:   p.matchID.String(),
		Type:      typ,
		EntryID:   entry.ID,
		Timestamp: entry.CreatedAt,
		Data:      data,
	}, true
}

// backoff handles a failed poll: the first failure flips the
// connection state, and the wait grows exponentially up to the cap. A
// rate-limited response's Retry-After wins when it is longer.
func (p *poller) backoff(err error) time.Duration {
	p.failures++
	if p.connected {
		p.connected = false
		p.emitConnection(events.ConnectionStateDisconnected, err.Error())
		log.Warn().
			Err(err).
			Str("match_id", p.matchID.String()).
			Msg("log unreachable; backing off")
	}

	wait := p.manager.interval
	for i := 1; i < p.failures && wait < p.manager.maxBackoff; i++ {
		wait *= 2
	}
	if wait > p.manager.maxBackoff {
		wait = p.manager.maxBackoff
	}

	var te *errs.TransportError
	if errors.As(err, &te) && te.RetryAfter > wait {
		wait = te.RetryAfter
	}

	log.Debug().
		Str("match_id", p.matchID.String()).
		Int("failures", p.failures).
		Dur("wait", wait).
		Msg("poll failed")
	return wait
}

func (p *poller) emitConnection(state events.ConnectionState, detail string) {
	ev, err := events.NewUpdateEvent(p.matchID.String(), events.UpdateTypeConnection, "", p.manager.clock.Now(), events.ConnectionPayload{
		State:  state,
		Detail: detail,
		At:     p.manager.clock.Now(),
	})
	if err != nil {
		return
	}
	p.manager.dispatcher.Dispatch(ev)
}
