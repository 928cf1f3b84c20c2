package storage

import (
	"testing"
	"time"
)

func TestRunAndLeaderboardRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	run := Run{ID: "run-1", StartedAt: time.Now(), Seed: 42, NSteps: 100}
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	if err := store.SaveSubmission(SubmissionRecord{
		ID: "sub-1", RunID: run.ID, Author: "alice", StrategyName: "Vanilla_30bps", Status: "scored",
	}); err != nil {
		t.Fatalf("save submission: %v", err)
	}

	entries := []LeaderboardEntry{
		{SubmissionID: "sub-1", RunID: run.ID, RealizedPnL: "12.5", AccumulatedFeesX: "1.0", AccumulatedFeesY: "2.0", Rank: 1},
	}
	if err := store.SaveLeaderboard(run.ID, entries); err != nil {
		t.Fatalf("save leaderboard: %v", err)
	}

	got, err := store.Leaderboard(run.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(got) != 1 || got[0].SubmissionID != "sub-1" {
		t.Fatalf("unexpected leaderboard: %+v", got)
	}

	if err := store.FinishRun(run.ID, time.Now()); err != nil {
		t.Fatalf("finish run: %v", err)
	}
}

func TestSaveLeaderboardReplacesPriorEntries(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	run := Run{ID: "run-1", StartedAt: time.Now(), Seed: 1, NSteps: 10}
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	for _, id := range []string{"sub-1", "sub-2"} {
		if err := store.SaveSubmission(SubmissionRecord{ID: id, RunID: run.ID, Author: "alice", Status: "scored"}); err != nil {
			t.Fatalf("save submission %s: %v", id, err)
		}
	}

	first := []LeaderboardEntry{{SubmissionID: "sub-1", RunID: run.ID, RealizedPnL: "1", AccumulatedFeesX: "0", AccumulatedFeesY: "0", Rank: 1}}
	if err := store.SaveLeaderboard(run.ID, first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := []LeaderboardEntry{{SubmissionID: "sub-2", RunID: run.ID, RealizedPnL: "2", AccumulatedFeesX: "0", AccumulatedFeesY: "0", Rank: 1}}
	if err := store.SaveLeaderboard(run.ID, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.Leaderboard(run.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(got) != 1 || got[0].SubmissionID != "sub-2" {
		t.Fatalf("expected only sub-2 to remain, got %+v", got)
	}
}
