package models

import (
	"testing"
	"time"
)

func TestStatsRecord(t *testing.T) {
	var s Stats
	results := []struct {
		winner Winner
		score  int
	}{
		{WinnerPlayer, 10},
		{WinnerBot, 4},
		{WinnerDraw, 12},
		{WinnerPlayer, 7},
	}
	for _, r := range results {
		s = s.Record(r.winner, r.score)
	}
	want := Stats{GamesPlayed: 4, GamesWon: 2, GamesLost: 2, HighestScore: 12}
	if s != want {
		t.Fatalf("stats = %+v, want %+v", s, want)
	}
	if s.GamesPlayed != s.GamesWon+s.GamesLost {
		t.Fatalf("played != won + lost: %+v", s)
	}
}

func TestRecordPatchApplyTo(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := GameRecord{ID: "g1", UserID: "u1", PlayerScore: 3, BotScore: 1, Winner: WinnerPlayer, Duration: 30, CreatedAt: created}

	if !(RecordPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}

	score, winner := 0, WinnerBot
	moves := []Move{{CardID: "fire", Type: "fire"}}
	p := RecordPatch{PlayerScore: &score, Winner: &winner, Moves: &moves}
	now := created.Add(time.Hour)
	got := p.ApplyTo(r, now)

	if got.PlayerScore != 0 || got.Winner != WinnerBot || got.BotScore != 1 || got.Duration != 30 {
		t.Fatalf("patched = %+v", got)
	}
	if len(got.Moves) != 1 || !got.UpdatedAt.Equal(now) || !got.CreatedAt.Equal(created) {
		t.Fatalf("patched = %+v", got)
	}
	moves[0].CardID = "changed"
	if got.Moves[0].CardID != "fire" {
		t.Fatalf("patched record aliases caller moves")
	}
}
