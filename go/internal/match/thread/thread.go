// Package thread models the external append-only discussion thread the
// match engine uses as both persistence and transport. The thread is
// at-least-once and possibly out-of-order; per-entry identity is the
// only ordering guarantee consumers may assume.
package thread

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/models"
)

// EntryKind tags the structured comments the engine appends.
type EntryKind string

const (
	EntryKindGame         EntryKind = "game"
	EntryKindPlayerJoined EntryKind = "player_joined"
	EntryKindRoundStart   EntryKind = "round_start"
	EntryKindSubmission   EntryKind = "submission"
	EntryKindRoundEnd     EntryKind = "round_end"
	EntryKindLeaderboard  EntryKind = "leaderboard"
	EntryKindStatus       EntryKind = "status"
	EntryKindResults      EntryKind = "results"
)

// Entry is one observed comment in the thread.
type Entry struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parent_id,omitempty"`
	Kind      EntryKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// RootPostConfig describes the root post created for a new match.
type RootPostConfig struct {
	Community string `json:"community"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
}

// Publisher is the write side of the thread.
type Publisher interface {
	// CreateRootPost creates the root post and returns its thread id.
	CreateRootPost(ctx context.Context, cfg RootPostConfig) (string, error)

	// AppendEntry appends a structured comment and returns the new
	// entry id. The parent is derived from the handle and kind: the
	// game entry hangs off the root, submissions and round results
	// hang off the latest round entry, everything else hangs off the
	// game entry.
	AppendEntry(ctx context.Context, handle *models.ThreadHandle, kind EntryKind, payload any) (string, error)
}

// Reader is the read side of the thread, consumed by the log poller.
type Reader interface {
	// ReadThread returns the current comment tree for the handle in
	// the order the log reports it.
	ReadThread(ctx context.Context, handle models.ThreadHandle) ([]Entry, error)
}

// parentFor picks the parent entry for a new append. Returns the empty
// string for top-level comments under the root post.
func parentFor(handle *models.ThreadHandle, kind EntryKind) string {
	switch kind {
	case EntryKindGame:
		return ""
	case EntryKindSubmission, EntryKindRoundEnd:
		if n := len(handle.RoundEntryIDs); n > 0 {
			return handle.RoundEntryIDs[n-1]
		}
		return handle.GameEntryID
	default:
		return handle.GameEntryID
	}
}
