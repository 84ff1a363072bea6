// Package orchestrator owns the match state machine, the round timers
// and the winner declaration logic. It is the single writer for every
// live match: all mutations go through its methods, and the external
// thread is the only channel to remote readers.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/match/scoring"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/match/validation"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultPublishTimeout    = 10 * time.Second
	defaultValidateTimeout   = 10 * time.Second
	defaultNextRoundDelay    = 10 * time.Second
	defaultTickInterval      = 5 * time.Second
	defaultPublishRetryDelay = 5 * time.Second
	defaultPublishRetryLimit = 5
)

// PermissionChecker is the external identity/permission collaborator.
type PermissionChecker interface {
	CanManage(ctx context.Context, community, action string) (bool, error)
}

// Store persists match records and community-scoped player statistics.
// Lookups are by match id and by (community, player id) only.
type Store interface {
	SaveMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	UpsertPlayerStats(ctx context.Context, community string, entry models.LeaderboardEntry) error
}

// PollControl starts and stops log polling for a match thread.
type PollControl interface {
	StartMatch(matchID uuid.UUID, handle models.ThreadHandle)
	StopMatch(matchID uuid.UUID)
}

// Dispatcher receives locally generated update events (timer ticks,
// immediate status changes) for server-side subscribers. Remote
// clients see the same information through the log.
type Dispatcher interface {
	Dispatch(ev events.UpdateEvent)
}

// Orchestrator runs every live match.
type Orchestrator struct {
	registry  *Registry
	publisher thread.Publisher
	validator validation.Validator
	scorer    *scoring.Engine
	store     Store
	perms     PermissionChecker
	pollers   PollControl
	dispatch  Dispatcher
	clock     clockwork.Clock

	timers     map[timerKey]clockwork.Timer
	timersMu   sync.Mutex
	shutdownCh chan struct{}

	publishTimeout    time.Duration
	validateTimeout   time.Duration
	nextRoundDelay    time.Duration
	tickInterval      time.Duration
	publishRetryDelay time.Duration
	publishRetryLimit int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock swaps the wall clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithPollControl wires the log poller manager.
func WithPollControl(pc PollControl) Option {
	return func(o *Orchestrator) { o.pollers = pc }
}

// WithDispatcher wires the server-side update dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatch = d }
}

// WithNextRoundDelay overrides the fixed delay between rounds.
func WithNextRoundDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.nextRoundDelay = d }
}

// WithPublishRetry overrides the backoff base delay and attempt limit
// for failed boundary publishes.
func WithPublishRetry(base time.Duration, limit int) Option {
	return func(o *Orchestrator) {
		o.publishRetryDelay = base
		o.publishRetryLimit = limit
	}
}

// NewOrchestrator creates a match orchestrator.
func NewOrchestrator(publisher thread.Publisher, validator validation.Validator, scorer *scoring.Engine, store Store, perms PermissionChecker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  NewRegistry(),
		publisher: publisher,
		validator: validator,
		scorer:    scorer,
		store:     store,
		perms:     perms,
		clock:     clockwork.NewRealClock(),

		timers:     make(map[timerKey]clockwork.Timer),
		shutdownCh: make(chan struct{}),

		publishTimeout:    defaultPublishTimeout,
		validateTimeout:   defaultValidateTimeout,
		nextRoundDelay:    defaultNextRoundDelay,
		tickInterval:      defaultTickInterval,
		publishRetryDelay: defaultPublishRetryDelay,
		publishRetryLimit: defaultPublishRetryLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateMatch validates authority over the community, publishes the
// root post and initial thread structure, and registers the match in
// WAITING_FOR_PLAYERS. Nothing is left behind on failure.
func (o *Orchestrator) CreateMatch(ctx context.Context, community string, cfg models.MatchConfig) (*models.Match, error) {
	if cfg.RoundCount() == 0 {
		return nil, &errs.ContextError{Op: "create match", Reason: "config has no round prompts"}
	}
	if cfg.RoundDurationSec <= 0 {
		return nil, &errs.ContextError{Op: "create match", Reason: "round duration must be positive"}
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = models.DifficultyMedium
	}

	ok, err := o.perms.CanManage(ctx, community, "create_match")
	if err != nil {
		return nil, &errs.ContextError{Op: "create match", Reason: fmt.Sprintf("permission check failed: %v", err)}
	}
	if !ok {
		return nil, &errs.ContextError{Op: "create match", Reason: "caller cannot manage community " + community}
	}

	matchID := uuid.New()
	now := o.clock.Now()

	pubCtx, cancel := context.WithTimeout(ctx, o.publishTimeout)
	defer cancel()

	threadID, err := o.publisher.CreateRootPost(pubCtx, thread.RootPostConfig{
		Community: community,
		Title:     cfg.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	handle := models.ThreadHandle{ThreadID: threadID}
	gameEntryID, err := o.publisher.AppendEntry(pubCtx, &handle, thread.EntryKindGame, events.GamePayload{
		MatchID:    matchID.String(),
		Title:      cfg.Title,
		Community:  community,
		Rounds:     cfg.RoundCount(),
		Difficulty: cfg.Difficulty,
		PlayerCap:  cfg.PlayerCap,
		Prizes:     cfg.Prizes,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	handle.GameEntryID = gameEntryID

	m := &models.Match{
		ID:                matchID,
		Community:         community,
		Thread:            handle,
		Status:            models.MatchStatusInitializing,
		Config:            cfg,
		CurrentRoundIndex: -1,
		CreatedAt:         now,
	}
	m.Status = models.MatchStatusWaitingForPlayers

	o.registry.Put(&managedMatch{match: m})
	o.saveMatch(ctx, m)
	if o.pollers != nil {
		o.pollers.StartMatch(matchID, handle)
	}
	o.dispatchStatus(m, "match created")

	log.Info().
		Str("match_id", matchID.String()).
		Str("thread_id", threadID).
		Str("community", community).
		Int("rounds", cfg.RoundCount()).
		Msg("match created")
	return m, nil
}

// JoinMatch adds a player while the match still accepts players. The
// leaderboard row is created on join.
func (o *Orchestrator) JoinMatch(ctx context.Context, matchID uuid.UUID, playerID string) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	m := mm.match

	switch m.Status {
	case models.MatchStatusWaitingForPlayers, models.MatchStatusActive, models.MatchStatusRoundInProgress, models.MatchStatusRoundEnded:
	default:
		return &errs.ContextError{Op: "join match", Reason: fmt.Sprintf("match is %s", m.Status)}
	}
	if m.HasPlayer(playerID) {
		return nil
	}
	if m.Config.PlayerCap > 0 && len(m.Players) >= m.Config.PlayerCap {
		return &errs.ContextError{Op: "join match", Reason: "player cap reached"}
	}

	now := o.clock.Now()
	m.Players = append(m.Players, playerID)
	m.Leaderboard = append(m.Leaderboard, &models.LeaderboardEntry{PlayerID: playerID, LastActive: now})

	if _, err := o.appendEntry(ctx, m, thread.EntryKindPlayerJoined, events.PlayerJoinedPayload{
		PlayerID: playerID,
		JoinedAt: now,
	}); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to publish player join")
	}
	o.saveMatch(ctx, m)

	log.Info().Str("match_id", matchID.String()).Str("player_id", playerID).Msg("player joined")
	return nil
}

// StartMatch transitions to ACTIVE, publishes the start announcement
// and kicks off the first round.
func (o *Orchestrator) StartMatch(ctx context.Context, matchID uuid.UUID) error {
	mm := o.registry.Get(matchID)
	if mm == nil {
		return &errs.NotFoundError{Kind: "match", ID: matchID.String()}
	}

	mm.mu.Lock()
	m := mm.match
	if m.Status != models.MatchStatusWaitingForPlayers {
		mm.mu.Unlock()
		return &errs.LogicError{Op: "start match", Detail: fmt.Sprintf("cannot start from %s", m.Status)}
	}

	now := o.clock.Now()
	m.Status = models.MatchStatusActive
	m.StartedAt = &now

	if err := o.publishStatus(ctx, m, "match started"); err != nil {
		log.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to publish start announcement")
	}
	o.dispatchStatus(m, "match started")
	mm.mu.Unlock()

	return o.StartNextRound(ctx, matchID)
}

// GetMatch returns a copy of a live match, falling back to the store
// for matches already evicted after reaching a terminal state. Timers
// keep mutating the live record, so callers never see it directly.
func (o *Orchestrator) GetMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	if mm := o.registry.Get(matchID); mm != nil {
		return mm.snapshot(), nil
	}
	if o.store != nil {
		if m, err := o.store.GetMatch(ctx, matchID); err == nil {
			return m, nil
		}
	}
	return nil, &errs.NotFoundError{Kind: "match", ID: matchID.String()}
}

// ListActiveMatches returns copies of every live match, each taken
// under its own lock.
func (o *Orchestrator) ListActiveMatches() []*models.Match {
	mms := o.registry.List()
	out := make([]*models.Match, 0, len(mms))
	for _, mm := range mms {
		out = append(out, mm.snapshot())
	}
	return out
}

// Shutdown stops every timer the orchestrator owns. Live matches stay
// in the registry; the host decides whether to flush them.
func (o *Orchestrator) Shutdown() {
	close(o.shutdownCh)
	o.timersMu.Lock()
	for key, timer := range o.timers {
		stopAndDrainTimer(timer)
		delete(o.timers, key)
	}
	o.timersMu.Unlock()
	log.Info().Msg("orchestrator shut down")
}

// appendEntry publishes a thread entry with a bounded timeout and
// records result/submission/round entry ids on the handle.
func (o *Orchestrator) appendEntry(ctx context.Context, m *models.Match, kind thread.EntryKind, payload any) (string, error) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.publishTimeout)
	defer cancel()

	entryID, err := o.publisher.AppendEntry(pubCtx, &m.Thread, kind, payload)
	if err != nil {
		return "", err
	}

	switch kind {
	case thread.EntryKindRoundStart:
		m.Thread.RoundEntryIDs = append(m.Thread.RoundEntryIDs, entryID)
	case thread.EntryKindSubmission:
		m.Thread.SubmissionEntryIDs = append(m.Thread.SubmissionEntryIDs, entryID)
	case thread.EntryKindRoundEnd, thread.EntryKindLeaderboard, thread.EntryKindResults:
		m.Thread.ResultEntryIDs = append(m.Thread.ResultEntryIDs, entryID)
	}
	return entryID, nil
}

func (o *Orchestrator) publishStatus(ctx context.Context, m *models.Match, reason string) error {
	_, err := o.appendEntry(ctx, m, thread.EntryKindStatus, events.StatusPayload{
		Status:    m.Status,
		Reason:    reason,
		ChangedAt: o.clock.Now(),
	})
	return err
}

// dispatchStatus emits a local status event to server-side subscribers.
func (o *Orchestrator) dispatchStatus(m *models.Match, reason string) {
	if o.dispatch == nil {
		return
	}
	ev, err := events.NewUpdateEvent(m.ID.String(), events.UpdateTypeStatus, "", o.clock.Now(), events.StatusPayload{
		Status:    m.Status,
		Reason:    reason,
		ChangedAt: o.clock.Now(),
	})
	if err != nil {
		return
	}
	o.dispatch.Dispatch(ev)
}

func (o *Orchestrator) saveMatch(ctx context.Context, m *models.Match) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveMatch(context.WithoutCancel(ctx), m); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Msg("failed to persist match")
	}
}
