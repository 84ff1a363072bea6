package reconciler

import (
	"testing"
	"time"

	"github.com/mcdev12/snapmatch/go/internal/match/events"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

func mustEvent(t *testing.T, matchID string, typ events.UpdateType, entryID string, payload any) events.UpdateEvent {
	t.Helper()
	ev, err := events.NewUpdateEvent(matchID, typ, entryID, time.Now(), payload)
	if err != nil {
		t.Fatalf("NewUpdateEvent: %v", err)
	}
	return ev
}

func TestApplyBuildsMatchView(t *testing.T) {
	r := NewReconciler()
	now := time.Now()

	apply := func(ev events.UpdateEvent) {
		t.Helper()
		if err := r.Apply(ev); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	apply(mustEvent(t, "m1", events.UpdateTypeRoundStart, "e1", events.RoundStartPayload{
		RoundIndex:  0,
		Prompt:      "sunset",
		DurationSec: 60,
		StartedAt:   now,
		EndsAt:      now.Add(60 * time.Second),
	}))
	apply(mustEvent(t, "m1", events.UpdateTypeSubmission, "e2", events.SubmissionPayload{
		SubmissionID: "s1",
		PlayerID:     "alice",
		RoundIndex:   0,
		MediaRef:     "media://a1",
		Status:       models.SubmissionStatusApproved,
	}))
	apply(mustEvent(t, "m1", events.UpdateTypeRoundEnd, "e3", events.RoundEndPayload{
		RoundIndex:     0,
		Reason:         events.RoundEndReasonWinner,
		WinnerPlayerID: "alice",
	}))
	apply(mustEvent(t, "m1", events.UpdateTypeLeaderboard, "e4", events.LeaderboardPayload{
		Entries: []models.LeaderboardEntry{{PlayerID: "alice", Score: 300, Rank: 1}},
	}))

	view := r.View("m1")
	if view == nil {
		t.Fatal("expected a view for m1")
	}
	if view.Status != models.MatchStatusRoundEnded {
		t.Fatalf("expected ROUND_ENDED, got %s", view.Status)
	}
	if view.CurrentRound != nil {
		t.Fatal("round end must clear the current round")
	}
	if view.Winners[0] != "alice" {
		t.Fatalf("expected alice as round 0 winner, got %v", view.Winners)
	}
	if len(view.Feed) != 1 || view.Feed[0].PlayerID != "alice" {
		t.Fatalf("unexpected feed: %+v", view.Feed)
	}
	if len(view.Leaderboard) != 1 || view.Leaderboard[0].Score != 300 {
		t.Fatalf("unexpected leaderboard: %+v", view.Leaderboard)
	}
}

func TestApplyIsIdempotentPerEntryID(t *testing.T) {
	r := NewReconciler()

	ev := mustEvent(t, "m1", events.UpdateTypeSubmission, "e1", events.SubmissionPayload{
		SubmissionID: "s1",
		PlayerID:     "alice",
	})
	for i := 0; i < 3; i++ {
		if err := r.Apply(ev); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}

	view := r.View("m1")
	if len(view.Feed) != 1 {
		t.Fatalf("duplicate delivery must not duplicate feed rows, got %d", len(view.Feed))
	}
}

func TestApplyConvergesRegardlessOfDeliveryPath(t *testing.T) {
	// The same events delivered twice, interleaved, must produce the
	// same view as a single clean delivery.
	build := func(deliverTwice bool) *MatchView {
		r := NewReconciler()
		evs := []events.UpdateEvent{
			mustEvent(t, "m1", events.UpdateTypeRoundStart, "e1", events.RoundStartPayload{RoundIndex: 0, Prompt: "sunset"}),
			mustEvent(t, "m1", events.UpdateTypeSubmission, "e2", events.SubmissionPayload{SubmissionID: "s1", PlayerID: "alice", RoundIndex: 0}),
			mustEvent(t, "m1", events.UpdateTypeRoundEnd, "e3", events.RoundEndPayload{RoundIndex: 0, WinnerPlayerID: "alice"}),
		}
		for _, ev := range evs {
			r.Apply(ev)
			if deliverTwice {
				r.Apply(ev)
			}
		}
		return r.View("m1")
	}

	clean := build(false)
	noisy := build(true)

	if clean.Status != noisy.Status || len(clean.Feed) != len(noisy.Feed) || clean.Winners[0] != noisy.Winners[0] {
		t.Fatalf("views diverged: %+v vs %+v", clean, noisy)
	}
}

func TestTimerAndConnectionEventsUpdateView(t *testing.T) {
	r := NewReconciler()

	r.Apply(mustEvent(t, "m1", events.UpdateTypeRoundStart, "e1", events.RoundStartPayload{RoundIndex: 0, DurationSec: 60}))
	r.Apply(mustEvent(t, "m1", events.UpdateTypeTimer, "", events.TimerPayload{RoundIndex: 0, RemainingSec: 42}))

	view := r.View("m1")
	if view.CurrentRound == nil || view.CurrentRound.RemainingSec != 42 {
		t.Fatalf("expected remaining 42, got %+v", view.CurrentRound)
	}
	if !view.Connected {
		t.Fatal("view starts connected")
	}

	r.Apply(mustEvent(t, "m1", events.UpdateTypeConnection, "", events.ConnectionPayload{State: events.ConnectionStateDisconnected}))
	if view = r.View("m1"); view.Connected {
		t.Fatal("disconnected event must flip the connected flag")
	}

	r.Apply(mustEvent(t, "m1", events.UpdateTypeConnection, "", events.ConnectionPayload{State: events.ConnectionStateConnected}))
	if view = r.View("m1"); !view.Connected {
		t.Fatal("connected event must restore the flag")
	}
}

func TestViewReturnsIndependentCopies(t *testing.T) {
	r := NewReconciler()
	r.Apply(mustEvent(t, "m1", events.UpdateTypeSubmission, "e1", events.SubmissionPayload{SubmissionID: "s1", PlayerID: "alice"}))

	a := r.View("m1")
	a.Feed[0].PlayerID = "tampered"
	a.Winners[9] = "tampered"

	b := r.View("m1")
	if b.Feed[0].PlayerID != "alice" {
		t.Fatal("mutating a returned view must not affect the projection")
	}
	if _, ok := b.Winners[9]; ok {
		t.Fatal("mutating a returned winners map must not affect the projection")
	}
}

func TestViewUnknownMatchIsNil(t *testing.T) {
	r := NewReconciler()
	if r.View("nope") != nil {
		t.Fatal("expected nil view for unknown match")
	}
}
