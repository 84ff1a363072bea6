package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpdateType tags the kind of change an UpdateEvent describes.
type UpdateType string

const (
	UpdateTypeRoundStart  UpdateType = "round_start"
	UpdateTypeRoundEnd    UpdateType = "round_end"
	UpdateTypeSubmission  UpdateType = "submission"
	UpdateTypeLeaderboard UpdateType = "leaderboard"
	UpdateTypeStatus      UpdateType = "status"
	UpdateTypeTimer       UpdateType = "timer"
	UpdateTypeConnection  UpdateType = "connection"
)

// UpdateEvent is the wire format between the log poller and any
// consumer. EntryID carries the originating log entry id and is the
// deduplication key; timer and connection events have no log entry and
// leave it empty.
type UpdateEvent struct {
	ID        string          `json:"id"`
	MatchID   string          `json:"match_id"`
	Type      UpdateType      `json:"type"`
	EntryID   string          `json:"entry_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewUpdateEvent builds an UpdateEvent with a fresh event id and the
// payload marshalled into Data.
func NewUpdateEvent(matchID string, typ UpdateType, entryID string, at time.Time, payload any) (UpdateEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return UpdateEvent{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return UpdateEvent{
		ID:        uuid.New().String(),
		MatchID:   matchID,
		Type:      typ,
		EntryID:   entryID,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParseUpdatePayload parses an event's Data into the payload struct for
// its type. Unknown types return (nil, nil).
func ParseUpdatePayload(event UpdateEvent) (interface{}, error) {
	switch event.Type {
	case UpdateTypeRoundStart:
		var payload RoundStartPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeRoundEnd:
		var payload RoundEndPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeSubmission:
		var payload SubmissionPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeLeaderboard:
		var payload LeaderboardPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeStatus:
		var payload StatusPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeTimer:
		var payload TimerPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case UpdateTypeConnection:
		var payload ConnectionPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
