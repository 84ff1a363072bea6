package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/snapmatch/go/internal/match/orchestrator"
	"github.com/mcdev12/snapmatch/go/internal/match/scoring"
	"github.com/mcdev12/snapmatch/go/internal/match/store"
	"github.com/mcdev12/snapmatch/go/internal/match/thread"
	"github.com/mcdev12/snapmatch/go/internal/match/validation"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator, *validation.StaticValidator) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	threadLog := thread.NewInMemoryThread(clock)
	validator := validation.NewStaticValidator()
	orch := orchestrator.NewOrchestrator(
		threadLog,
		validator,
		scoring.NewEngine(),
		store.NewMemoryStore(),
		allowAllPermissions{},
		orchestrator.WithClock(clock),
	)

	mux := http.NewServeMux()
	registerRoutes(mux, &Services{Orchestrator: orch})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, orch, validator
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestSubmitRouteMapsRejectionToUnprocessable(t *testing.T) {
	server, orch, validator := newTestServer(t)
	ctx := context.Background()

	validator.Verdicts["media://nsfw"] = models.ValidationResult{
		IsValid:         false,
		ContentWarnings: []string{"nsfw"},
	}

	m, err := orch.CreateMatch(ctx, "photo-club", models.MatchConfig{
		Title:            "weekly photo battle",
		RoundDurationSec: 60,
		Prompts:          []string{"sunset"},
	})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if err := orch.StartMatch(ctx, m.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}

	submitURL := server.URL + "/api/v1/matches/" + m.ID.String() + "/submit"

	resp := postJSON(t, submitURL, map[string]any{
		"player_id": "mallory", "media_ref": "media://nsfw", "round_index": 0,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for rejected submission, got %d", resp.StatusCode)
	}

	// The rejection is a response shape only; the submission is still
	// recorded in the feed.
	stored, err := orch.GetMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if len(stored.Rounds[0].Submissions) != 1 || stored.Rounds[0].Submissions[0].Status != models.SubmissionStatusRejected {
		t.Fatal("rejected submission must be recorded in the round feed")
	}

	// A clean submission on the same route is created normally.
	resp2 := postJSON(t, submitURL, map[string]any{
		"player_id": "alice", "media_ref": "media://ok", "round_index": 0,
	})
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for approved submission, got %d", resp2.StatusCode)
	}
	var sub models.Submission
	if err := json.NewDecoder(resp2.Body).Decode(&sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Status != models.SubmissionStatusApproved {
		t.Fatalf("expected APPROVED, got %s", sub.Status)
	}
}

func TestRoutesMapDomainErrorsToStatusCodes(t *testing.T) {
	server, orch, _ := newTestServer(t)
	ctx := context.Background()

	m, err := orch.CreateMatch(ctx, "photo-club", models.MatchConfig{
		Title:            "weekly photo battle",
		RoundDurationSec: 60,
		Prompts:          []string{"sunset"},
	})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	// Unknown match id.
	resp, err := http.Get(server.URL + "/api/v1/matches/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown match, got %d", resp.StatusCode)
	}

	// Submitting before any round runs is a context refusal.
	resp = postJSON(t, server.URL+"/api/v1/matches/"+m.ID.String()+"/submit", map[string]any{
		"player_id": "alice", "media_ref": "media://ok", "round_index": 0,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 before the first round, got %d", resp.StatusCode)
	}

	// Double start conflicts.
	startURL := server.URL + "/api/v1/matches/" + m.ID.String() + "/start"
	resp = postJSON(t, startURL, map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 starting the match, got %d", resp.StatusCode)
	}
	resp = postJSON(t, startURL, map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on double start, got %d", resp.StatusCode)
	}
}
