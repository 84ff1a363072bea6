package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

// InMemoryThread is a Publisher/Reader backed by process memory, used
// in tests and local development. It is append-only like the real log
// and can simulate unavailability.
type InMemoryThread struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	threads   map[string][]Entry
	nextID    int
	available bool
}

// NewInMemoryThread creates an empty in-memory thread store.
func NewInMemoryThread(clock clockwork.Clock) *InMemoryThread {
	return &InMemoryThread{
		clock:     clock,
		threads:   make(map[string][]Entry),
		available: true,
	}
}

// SetAvailable toggles simulated log availability. While unavailable
// every call fails with a TransportError.
func (t *InMemoryThread) SetAvailable(available bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.available = available
}

func (t *InMemoryThread) CreateRootPost(ctx context.Context, cfg RootPostConfig) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.available {
		return "", &errs.TransportError{Op: "create root post", Err: errors.New("thread service unavailable")}
	}

	t.nextID++
	threadID := fmt.Sprintf("t%04d", t.nextID)
	t.threads[threadID] = nil
	return threadID, nil
}

func (t *InMemoryThread) AppendEntry(ctx context.Context, handle *models.ThreadHandle, kind EntryKind, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.available {
		return "", &errs.TransportError{Op: fmt.Sprintf("append %s entry", kind), Err: errors.New("thread service unavailable")}
	}
	if _, ok := t.threads[handle.ThreadID]; !ok {
		return "", &errs.NotFoundError{Kind: "thread", ID: handle.ThreadID}
	}

	t.nextID++
	entry := Entry{
		ID:        fmt.Sprintf("%s-c%04d", handle.ThreadID, t.nextID),
		ParentID:  parentFor(handle, kind),
		Kind:      kind,
		Payload:   data,
		CreatedAt: t.clock.Now(),
	}
	t.threads[handle.ThreadID] = append(t.threads[handle.ThreadID], entry)
	return entry.ID, nil
}

func (t *InMemoryThread) ReadThread(ctx context.Context, handle models.ThreadHandle) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.available {
		return nil, &errs.TransportError{Op: "read thread", Err: errors.New("thread service unavailable")}
	}

	entries, ok := t.threads[handle.ThreadID]
	if !ok {
		return nil, &errs.NotFoundError{Kind: "thread", ID: handle.ThreadID}
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}
