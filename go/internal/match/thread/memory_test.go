package thread

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

func TestAppendEntryThreadsUnderLatestRound(t *testing.T) {
	ctx := context.Background()
	log := NewInMemoryThread(clockwork.NewFakeClock())

	threadID, err := log.CreateRootPost(ctx, RootPostConfig{Community: "photo-club", Title: "battle"})
	if err != nil {
		t.Fatalf("CreateRootPost: %v", err)
	}
	handle := models.ThreadHandle{ThreadID: threadID}

	gameID, err := log.AppendEntry(ctx, &handle, EntryKindGame, map[string]string{"k": "game"})
	if err != nil {
		t.Fatalf("AppendEntry game: %v", err)
	}
	handle.GameEntryID = gameID

	roundID, err := log.AppendEntry(ctx, &handle, EntryKindRoundStart, map[string]string{"k": "round"})
	if err != nil {
		t.Fatalf("AppendEntry round: %v", err)
	}
	handle.RoundEntryIDs = append(handle.RoundEntryIDs, roundID)

	subID, err := log.AppendEntry(ctx, &handle, EntryKindSubmission, map[string]string{"k": "sub"})
	if err != nil {
		t.Fatalf("AppendEntry submission: %v", err)
	}
	statusID, err := log.AppendEntry(ctx, &handle, EntryKindStatus, map[string]string{"k": "status"})
	if err != nil {
		t.Fatalf("AppendEntry status: %v", err)
	}

	entries, err := log.ReadThread(ctx, handle)
	if err != nil {
		t.Fatalf("ReadThread: %v", err)
	}

	parents := make(map[string]string)
	for _, e := range entries {
		parents[e.ID] = e.ParentID
	}
	if parents[gameID] != "" {
		t.Fatalf("game entry must hang off the root, got parent %q", parents[gameID])
	}
	if parents[roundID] != gameID {
		t.Fatalf("round entry must hang off the game entry, got %q", parents[roundID])
	}
	if parents[subID] != roundID {
		t.Fatalf("submission must hang off the latest round, got %q", parents[subID])
	}
	if parents[statusID] != gameID {
		t.Fatalf("status must hang off the game entry, got %q", parents[statusID])
	}
}

func TestUnavailableLogFailsWithTransportError(t *testing.T) {
	ctx := context.Background()
	log := NewInMemoryThread(clockwork.NewFakeClock())

	threadID, _ := log.CreateRootPost(ctx, RootPostConfig{Title: "battle"})
	handle := models.ThreadHandle{ThreadID: threadID}

	log.SetAvailable(false)

	if _, err := log.AppendEntry(ctx, &handle, EntryKindStatus, nil); !errs.IsTransport(err) {
		t.Fatalf("expected TransportError from append, got %v", err)
	}
	if _, err := log.ReadThread(ctx, handle); !errs.IsTransport(err) {
		t.Fatalf("expected TransportError from read, got %v", err)
	}

	log.SetAvailable(true)
	if _, err := log.AppendEntry(ctx, &handle, EntryKindStatus, map[string]string{}); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}

func TestAppendToUnknownThread(t *testing.T) {
	log := NewInMemoryThread(clockwork.NewFakeClock())
	handle := models.ThreadHandle{ThreadID: "missing"}

	if _, err := log.AppendEntry(context.Background(), &handle, EntryKindStatus, nil); !errs.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
