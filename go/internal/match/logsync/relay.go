package logsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	StreamName    = "MATCH_EVENTS"
	subjectPrefix = "match.events"

	natsMaxReconnects = -1
	natsReconnectWait = 2 * time.Second
)

// NATSRelay publishes dispatched update events to a JetStream stream
// so other server-side consumers (the WebSocket gateway) receive them
// without touching the external log.
type NATSRelay struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNATSRelay connects to NATS and ensures the match events stream
// exists.
func NewNATSRelay(ctx context.Context, natsURL string) (*NATSRelay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &NATSRelay{nc: nc, js: js}, nil
}

// Publish sends one update event to the stream.
func (r *NATSRelay) Publish(ctx context.Context, ev events.UpdateEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal update event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s.%s", subjectPrefix, ev.MatchID, ev.Type)
	if _, err := r.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID).
		Msg("relayed update event")
	return nil
}

// Close shuts down the NATS connection.
func (r *NATSRelay) Close() {
	if r.nc != nil {
		r.nc.Close()
	}
}
