// Package snapshot runs the periodic leaderboard snapshot job. Each
// cycle posts a leaderboard entry to the log of every live match, so
// remote clients converge on standings even between round boundaries.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/models"
	"github.com/rs/zerolog/log"
)

const defaultInterval = time.Minute

// Publisher is the orchestrator surface the job drives.
type Publisher interface {
	ListActiveMatches() []*models.Match
	PublishLeaderboardSnapshot(ctx context.Context, matchID uuid.UUID) error
}

// Snapshotter owns the scheduler and its single recurring job.
type Snapshotter struct {
	publisher Publisher
	scheduler gocron.Scheduler
	interval  time.Duration
}

// Option customizes a Snapshotter.
type Option func(*Snapshotter)

// WithInterval overrides the snapshot interval.
func WithInterval(d time.Duration) Option {
	return func(s *Snapshotter) { s.interval = d }
}

// NewSnapshotter creates the snapshot scheduler. Call Start to begin.
func NewSnapshotter(publisher Publisher, opts ...Option) (*Snapshotter, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Snapshotter{
		publisher: publisher,
		scheduler: sched,
		interval:  defaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start schedules the recurring job and starts the scheduler.
func (s *Snapshotter) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runOnce),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}

	s.scheduler.Start()
	log.Info().Dur("interval", s.interval).Msg("leaderboard snapshot job started")
	return nil
}

func (s *Snapshotter) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, m := range s.publisher.ListActiveMatches() {
		if err := s.publisher.PublishLeaderboardSnapshot(ctx, m.ID); err != nil {
			log.Error().
				Err(err).
				Str("match_id", m.ID.String()).
				Msg("failed to publish leaderboard snapshot")
		}
	}
}

// Stop shuts the scheduler down.
func (s *Snapshotter) Stop() error {
	return s.scheduler.Shutdown()
}
