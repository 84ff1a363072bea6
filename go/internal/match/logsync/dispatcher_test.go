package logsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/events"
)

type captureRelay struct {
	mu     sync.Mutex
	events []events.UpdateEvent
}

func (r *captureRelay) Publish(ctx context.Context, ev events.UpdateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *captureRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func makeEvent(t *testing.T, matchID, entryID string) events.UpdateEvent {
	t.Helper()
	ev, err := events.NewUpdateEvent(matchID, events.UpdateTypeStatus, entryID, time.Now(), events.StatusPayload{})
	if err != nil {
		t.Fatalf("NewUpdateEvent: %v", err)
	}
	return ev
}

func TestDispatchDropsDuplicateEntryIDs(t *testing.T) {
	d := NewDispatcher(nil)

	var got []events.UpdateEvent
	d.Subscribe("m1", func(ev events.UpdateEvent) {
		got = append(got, ev)
	})

	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Dispatch(makeEvent(t, "m1", "e2"))

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].EntryID != "e1" || got[1].EntryID != "e2" {
		t.Fatalf("unexpected delivery order: %v, %v", got[0].EntryID, got[1].EntryID)
	}
}

func TestDispatchAlwaysDeliversEventsWithoutEntryID(t *testing.T) {
	d := NewDispatcher(nil)

	delivered := 0
	d.Subscribe("m1", func(ev events.UpdateEvent) { delivered++ })

	// Timer and connection events carry no log entry id and must never
	// be deduplicated.
	d.Dispatch(makeEvent(t, "m1", ""))
	d.Dispatch(makeEvent(t, "m1", ""))

	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
}

func TestDispatchScopesDedupPerMatch(t *testing.T) {
	d := NewDispatcher(nil)

	counts := map[string]int{}
	d.Subscribe("m1", func(ev events.UpdateEvent) { counts["m1"]++ })
	d.Subscribe("m2", func(ev events.UpdateEvent) { counts["m2"]++ })

	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Dispatch(makeEvent(t, "m2", "e1"))

	if counts["m1"] != 1 || counts["m2"] != 1 {
		t.Fatalf("expected one delivery per match, got %v", counts)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher(nil)

	delivered := 0
	unsubscribe := d.Subscribe("m1", func(ev events.UpdateEvent) { delivered++ })

	d.Dispatch(makeEvent(t, "m1", "e1"))
	unsubscribe()
	d.Dispatch(makeEvent(t, "m1", "e2"))

	if delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered)
	}
}

func TestForgetResetsDedupState(t *testing.T) {
	d := NewDispatcher(nil)

	delivered := 0
	d.Subscribe("m1", func(ev events.UpdateEvent) { delivered++ })

	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Forget("m1")

	// Forget drops subscriptions too; resubscribe and replay.
	d.Subscribe("m1", func(ev events.UpdateEvent) { delivered++ })
	d.Dispatch(makeEvent(t, "m1", "e1"))

	if delivered != 2 {
		t.Fatalf("expected replay after Forget, got %d deliveries", delivered)
	}
}

func TestDispatchRelaysEveryDeliveredEvent(t *testing.T) {
	relay := &captureRelay{}
	d := NewDispatcher(relay)

	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Dispatch(makeEvent(t, "m1", "e1"))
	d.Dispatch(makeEvent(t, "m1", "e2"))

	if relay.count() != 2 {
		t.Fatalf("expected 2 relayed events, got %d", relay.count())
	}
}
