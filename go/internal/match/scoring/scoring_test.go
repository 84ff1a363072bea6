package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/snapmatch/go/internal/models"
)

func testRound(difficulty models.MatchDifficulty, durationSec int) *models.Round {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &models.Round{
		Index:       0,
		Difficulty:  difficulty,
		DurationSec: durationSec,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(durationSec) * time.Second),
		Status:      models.RoundStatusActive,
	}
}

func TestScoreDifficultyAndSpeed(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name       string
		difficulty models.MatchDifficulty
		submitAt   time.Duration
		want       int
	}{
		{name: "easy instant", difficulty: models.DifficultyEasy, submitAt: 0, want: 200},
		{name: "medium instant", difficulty: models.DifficultyMedium, submitAt: 0, want: 300},
		{name: "hard instant", difficulty: models.DifficultyHard, submitAt: 0, want: 400},
		{name: "medium halfway", difficulty: models.DifficultyMedium, submitAt: 30 * time.Second, want: 250},
		{name: "medium at buzzer", difficulty: models.DifficultyMedium, submitAt: 60 * time.Second, want: 200},
		{name: "medium after buzzer", difficulty: models.DifficultyMedium, submitAt: 90 * time.Second, want: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			round := testRound(tt.difficulty, 60)
			sub := &models.Submission{SubmittedAt: round.StartTime.Add(tt.submitAt)}
			if got := e.Score(sub, round); got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := NewEngine()
	round := testRound(models.DifficultyHard, 45)
	sub := &models.Submission{SubmittedAt: round.StartTime.Add(7 * time.Second)}

	first := e.Score(sub, round)
	for i := 0; i < 10; i++ {
		if got := e.Score(sub, round); got != first {
			t.Fatalf("Score() not deterministic: %d then %d", first, got)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	e := NewEngine()
	early := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Minute)

	entries := []*models.LeaderboardEntry{
		{PlayerID: "carol", Score: 100, LastActive: late},
		{PlayerID: "alice", Score: 300, LastActive: late},
		{PlayerID: "bob", Score: 100, LastActive: early},
	}
	e.Rank(entries)

	wantOrder := []string{"alice", "bob", "carol"}
	for i, want := range wantOrder {
		if entries[i].PlayerID != want {
			t.Fatalf("position %d: got %s, want %s", i, entries[i].PlayerID, want)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("position %d: rank %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestRankTieBreaksByPlayerID(t *testing.T) {
	e := NewEngine()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []*models.LeaderboardEntry{
		{PlayerID: "zed", Score: 100, LastActive: at},
		{PlayerID: "amy", Score: 100, LastActive: at},
	}
	e.Rank(entries)

	if entries[0].PlayerID != "amy" {
		t.Fatalf("expected amy first on full tie, got %s", entries[0].PlayerID)
	}
}

func TestRecomputeMatchesIncrementalState(t *testing.T) {
	e := NewEngine()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	winning := &models.Submission{
		ID:          uuid.New(),
		PlayerID:    "alice",
		SubmittedAt: start.Add(5 * time.Second),
		Status:      models.SubmissionStatusApproved,
	}
	losing := &models.Submission{
		ID:          uuid.New(),
		PlayerID:    "bob",
		SubmittedAt: start.Add(2 * time.Second),
		Status:      models.SubmissionStatusRejected,
	}

	round := testRound(models.DifficultyMedium, 60)
	round.Submissions = []*models.Submission{losing, winning}
	round.Winner = &models.RoundWinner{
		PlayerID:     "alice",
		SubmissionID: winning.ID,
		Score:        e.Score(winning, round),
	}

	m := &models.Match{
		Players: []string{"alice", "bob"},
		Rounds:  []*models.Round{round},
	}

	first := e.Recompute(m)
	second := e.Recompute(m)

	if len(first) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(first))
	}
	if first[0].PlayerID != "alice" || first[0].Wins != 1 || first[0].Score != round.Winner.Score {
		t.Fatalf("unexpected leader: %+v", first[0])
	}
	if first[1].PlayerID != "bob" || first[1].Score != 0 {
		t.Fatalf("rejected submissions must not score: %+v", first[1])
	}
	if first[1].Submissions != 0 || !first[1].LastActive.IsZero() {
		t.Fatalf("rejected submissions must not count as activity: %+v", first[1])
	}

	for i := range first {
		if first[i].PlayerID != second[i].PlayerID || first[i].Score != second[i].Score || first[i].Rank != second[i].Rank {
			t.Fatalf("recompute not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
