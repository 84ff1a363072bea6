package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/snapmatch/go/clients/threadapi"
	"github.com/mcdev12/snapmatch/go/internal/match/gateway"
	"github.com/mcdev12/snapmatch/go/internal/match/logsync"
	"github.com/mcdev12/snapmatch/go/internal/match/orchestrator"
	"github.com/mcdev12/snapmatch/go/internal/match/scoring"
	"github.com/mcdev12/snapmatch/go/internal/match/snapshot"
	"github.com/mcdev12/snapmatch/go/internal/match/store"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/match/validation"
	"github.com/rs/zerolog/log"
)

// Services holds every wired component of the match engine.
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *logsync.Dispatcher
	Pollers      *logsync.Manager
	Relay        *logsync.NATSRelay
	Connections  *gateway.ConnectionManager
	Consumer     *gateway.EventConsumer
	Snapshotter  *snapshot.Snapshotter
}

// allowAllPermissions accepts every community management request. Real
// deployments swap in a checker backed by the community platform.
type allowAllPermissions struct{}

func (allowAllPermissions) CanManage(ctx context.Context, community, action string) (bool, error) {
	return true, nil
}

func setupServices(ctx context.Context, config *Config, pool *pgxpool.Pool) (*Services, error) {
	// Thread log → Repository layer → orchestrator, event pipeline on top.
	threadClient := threadapi.NewClient(config.Thread.BaseURL, config.Thread.APIKey)
	threadLog := thread.NewAPIThread(threadClient)

	var matchStore orchestrator.Store
	if pool != nil {
		matchStore = store.NewRepository(store.NewQueries(pool))
	} else {
		log.Warn().Msg("no database configured, using in-memory store")
		matchStore = store.NewMemoryStore()
	}

	var validator validation.Validator
	if config.Validator.URL != "" {
		validator = validation.NewHTTPValidator(config.Validator.URL)
	} else {
		log.Warn().Msg("no validator configured, approving all submissions")
		validator = validation.NewStaticValidator()
	}

	var relay *logsync.NATSRelay
	relay, err := logsync.NewNATSRelay(ctx, config.NATS.URL)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, events will not be relayed")
		relay = nil
	}

	var relayPub logsync.RelayPublisher
	if relay != nil {
		relayPub = relay
	}
	dispatcher := logsync.NewDispatcher(relayPub)
	pollers := logsync.NewManager(threadLog, dispatcher, logsync.WithInterval(config.pollInterval()))

	orch := orchestrator.NewOrchestrator(
		threadLog,
		validator,
		scoring.NewEngine(),
		matchStore,
		allowAllPermissions{},
		orchestrator.WithPollControl(pollers),
		orchestrator.WithDispatcher(dispatcher),
	)

	connections := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	var consumer *gateway.EventConsumer
	if relay != nil {
		consumerConfig := gateway.DefaultJetStreamConsumerConfig()
		consumerConfig.URL = config.NATS.URL
		consumer, err = gateway.NewEventConsumer(connections, consumerConfig)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up gateway event consumer")
			consumer = nil
		}
	}

	snapshotter, err := snapshot.NewSnapshotter(orch, snapshot.WithInterval(config.snapshotInterval()))
	if err != nil {
		return nil, err
	}

	return &Services{
		Orchestrator: orch,
		Dispatcher:   dispatcher,
		Pollers:      pollers,
		Relay:        relay,
		Connections:  connections,
		Consumer:     consumer,
		Snapshotter:  snapshotter,
	}, nil
}
