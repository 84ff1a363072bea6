package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/match/errs"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

func TestMemoryStoreRoundTripsMatchDocuments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m := &models.Match{
		ID:        uuid.New(),
		Community: "photo-club",
		Status:    models.MatchStatusRoundInProgress,
		Config: models.MatchConfig{
			Title:            "battle",
			RoundDurationSec: 60,
			Prompts:          []string{"sunset"},
		},
		CurrentRoundIndex: 0,
		Players:           []string{"alice"},
	}
	if err := s.SaveMatch(ctx, m); err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}

	got, err := s.GetMatch(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Status != m.Status || got.Community != m.Community || len(got.Players) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	// Stored copies are independent of the original.
	m.Status = models.MatchStatusCancelled
	got, _ = s.GetMatch(ctx, m.ID)
	if got.Status != models.MatchStatusRoundInProgress {
		t.Fatal("stored document must not alias the live match")
	}
}

func TestMemoryStoreMissingMatch(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetMatch(context.Background(), uuid.New()); !errs.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestMemoryStoreUpsertsPlayerStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entry := models.LeaderboardEntry{PlayerID: "alice", Score: 100, Wins: 1, Submissions: 2, LastActive: at}
	if err := s.UpsertPlayerStats(ctx, "photo-club", entry); err != nil {
		t.Fatalf("UpsertPlayerStats: %v", err)
	}

	entry.Score = 300
	if err := s.UpsertPlayerStats(ctx, "photo-club", entry); err != nil {
		t.Fatalf("UpsertPlayerStats: %v", err)
	}

	got, err := s.GetPlayerStats(ctx, "photo-club", "alice")
	if err != nil {
		t.Fatalf("GetPlayerStats: %v", err)
	}
	if got.Score != 300 {
		t.Fatalf("upsert must replace, got score %d", got.Score)
	}

	// Stats are community scoped.
	if _, err := s.GetPlayerStats(ctx, "other-club", "alice"); !errs.IsNotFound(err) {
		t.Fatalf("expected NotFoundError in other community, got %v", err)
	}
}
