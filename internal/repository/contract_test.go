package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forestclash/go-server/internal/apperr"
	"github.com/forestclash/go-server/internal/models"
)

func TestMemoryContract(t *testing.T) {
	runContract(t, func(t *testing.T) Repository { return NewMemory() })
}

func TestSQLiteContract(t *testing.T) {
	runContract(t, func(t *testing.T) Repository {
		r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}

func TestMongoContract(t *testing.T) {
	uri := os.Getenv("FORESTCLASH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FORESTCLASH_TEST_MONGO_URI not set")
	}
	n := 0
	runContract(t, func(t *testing.T) Repository {
		n++
		db := fmt.Sprintf("forestclash_test_%d_%d", time.Now().UnixNano(), n)
		r, err := OpenMongo(context.Background(), uri, db)
		if err != nil {
			t.Fatalf("open mongo: %v", err)
		}
		t.Cleanup(func() {
			_ = r.client.Database(db).Drop(context.Background())
			_ = r.Close()
		})
		return r
	})
}

func TestSQLiteMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		r, err := OpenSQLite(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = r.Close()
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

// Mongo stores millisecond precision; keep fixtures on that grid.
var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newAccount(name string, at time.Time) *models.Account {
	return &models.Account{
		ID:           models.NewID(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    at,
	}
}

func newRecord(userID string, w models.Winner, score int, at time.Time) *models.GameRecord {
	return &models.GameRecord{
		ID:          models.NewID(),
		UserID:      userID,
		PlayerScore: score,
		BotScore:    1,
		Winner:      w,
		Duration:    30,
		Moves:       []models.Move{{CardID: "fire", Type: "fire", By: "player"}},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("duplicate account conflicts", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("ash", base)
		if err := r.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}

		sameEmail := newAccount("other", base)
		sameEmail.Email = a.Email
		sameName := newAccount("ash", base)
		sameName.Email = "fresh@example.com"

		for name, dup := range map[string]*models.Account{"email": sameEmail, "username": sameName} {
			if err := r.CreateAccount(ctx, dup); !apperr.Is(err, apperr.KindConflict) {
				t.Fatalf("duplicate %s: got %v, want Conflict", name, err)
			}
		}
	})

	t.Run("lookup by id and email", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("misty", base)
		_ = r.CreateAccount(ctx, a)

		got, err := r.AccountByEmail(ctx, a.Email)
		if err != nil || got.ID != a.ID || got.PasswordHash != "hash" {
			t.Fatalf("by email: got %+v, %v", got, err)
		}
		if _, err := r.AccountByID(ctx, "missing"); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("missing id: got %v, want NotFound", err)
		}
		if _, err := r.AccountByEmail(ctx, "nobody@example.com"); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("missing email: got %v, want NotFound", err)
		}
	})

	t.Run("create record updates stats", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("brock", base)
		_ = r.CreateAccount(ctx, a)

		steps := []struct {
			w     models.Winner
			score int
			want  models.Stats
		}{
			{models.WinnerPlayer, 5, models.Stats{GamesPlayed: 1, GamesWon: 1, HighestScore: 5}},
			{models.WinnerBot, 3, models.Stats{GamesPlayed: 2, GamesWon: 1, GamesLost: 1, HighestScore: 5}},
			{models.WinnerDraw, 9, models.Stats{GamesPlayed: 3, GamesWon: 1, GamesLost: 2, HighestScore: 9}},
		}
		for i, s := range steps {
			got, err := r.CreateRecord(ctx, newRecord(a.ID, s.w, s.score, base.Add(time.Duration(i)*time.Second)))
			if err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
			if got != s.want {
				t.Fatalf("step %d: got %+v, want %+v", i, got, s.want)
			}
		}
		acc, _ := r.AccountByID(ctx, a.ID)
		if acc.Stats != steps[len(steps)-1].want {
			t.Fatalf("stored stats: got %+v", acc.Stats)
		}
	})

	t.Run("missing owner leaves nothing", func(t *testing.T) {
		r := newRepo(t)
		rec := newRecord("ghost", models.WinnerPlayer, 1, base)
		if _, err := r.CreateRecord(ctx, rec); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("got %v, want NotFound", err)
		}
		list, err := r.ListRecords(ctx, "ghost", 20)
		if err != nil || len(list) != 0 {
			t.Fatalf("list after failed create: got %d, %v", len(list), err)
		}
	})

	t.Run("records are scoped by owner", func(t *testing.T) {
		r := newRepo(t)
		a, b := newAccount("alice", base), newAccount("bob", base)
		_ = r.CreateAccount(ctx, a)
		_ = r.CreateAccount(ctx, b)
		rec := newRecord(a.ID, models.WinnerPlayer, 4, base)
		if _, err := r.CreateRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}

		if _, err := r.GetRecord(ctx, b.ID, rec.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("foreign get: got %v", err)
		}
		score := 99
		if _, err := r.UpdateRecord(ctx, b.ID, rec.ID, models.RecordPatch{PlayerScore: &score}, base); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("foreign update: got %v", err)
		}
		if err := r.DeleteRecord(ctx, b.ID, rec.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("foreign delete: got %v", err)
		}
		if list, _ := r.ListRecords(ctx, b.ID, 20); len(list) != 0 {
			t.Fatalf("foreign list: got %d records", len(list))
		}

		got, err := r.GetRecord(ctx, a.ID, rec.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.PlayerScore != 4 || len(got.Moves) != 1 || got.Moves[0].CardID != "fire" {
			t.Fatalf("owner get: got %+v", got)
		}
	})

	t.Run("list is newest first and capped", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("gary", base)
		_ = r.CreateAccount(ctx, a)
		for i := 0; i < 25; i++ {
			if _, err := r.CreateRecord(ctx, newRecord(a.ID, models.WinnerBot, i, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatal(err)
			}
		}
		list, err := r.ListRecords(ctx, a.ID, 20)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 20 {
			t.Fatalf("len: got %d, want 20", len(list))
		}
		if list[0].PlayerScore != 24 || list[19].PlayerScore != 5 {
			t.Fatalf("order: first %d, last %d", list[0].PlayerScore, list[19].PlayerScore)
		}
		for i := 1; i < len(list); i++ {
			if list[i].CreatedAt.After(list[i-1].CreatedAt) {
				t.Fatalf("not descending at %d", i)
			}
		}
	})

	t.Run("update and delete leave stats alone", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("dawn", base)
		_ = r.CreateAccount(ctx, a)
		rec := newRecord(a.ID, models.WinnerBot, 2, base)
		before, _ := r.CreateRecord(ctx, rec)

		w := models.WinnerPlayer
		score := 50
		moves := []models.Move{}
		later := base.Add(time.Hour)
		got, err := r.UpdateRecord(ctx, a.ID, rec.ID, models.RecordPatch{Winner: &w, PlayerScore: &score, Moves: &moves}, later)
		if err != nil {
			t.Fatal(err)
		}
		if got.Winner != w || got.PlayerScore != 50 || got.BotScore != 1 || len(got.Moves) != 0 {
			t.Fatalf("patched: got %+v", got)
		}
		if !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(base) {
			t.Fatalf("timestamps: created %v updated %v", got.CreatedAt, got.UpdatedAt)
		}

		if err := r.DeleteRecord(ctx, a.ID, rec.ID); err != nil {
			t.Fatal(err)
		}
		if err := r.DeleteRecord(ctx, a.ID, rec.ID); !apperr.Is(err, apperr.KindNotFound) {
			t.Fatalf("second delete: got %v", err)
		}
		acc, _ := r.AccountByID(ctx, a.ID)
		if acc.Stats != before {
			t.Fatalf("stats moved: got %+v, want %+v", acc.Stats, before)
		}
	})

	t.Run("concurrent creates keep every increment", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("may", base)
		_ = r.CreateAccount(ctx, a)

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				w := models.WinnerBot
				if i%2 == 0 {
					w = models.WinnerPlayer
				}
				if _, err := r.CreateRecord(ctx, newRecord(a.ID, w, i, base.Add(time.Duration(i)*time.Second))); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		failed := 0
		for err := range errs {
			failed++
			t.Logf("create: %v", err)
		}

		acc, _ := r.AccountByID(ctx, a.ID)
		list, _ := r.ListRecords(ctx, a.ID, 50)
		if acc.Stats.GamesPlayed != len(list) {
			t.Fatalf("gamesPlayed %d, stored records %d", acc.Stats.GamesPlayed, len(list))
		}
		if acc.Stats.GamesPlayed != acc.Stats.GamesWon+acc.Stats.GamesLost {
			t.Fatalf("won+lost mismatch: %+v", acc.Stats)
		}
		if failed == 0 && acc.Stats.GamesPlayed != n {
			t.Fatalf("gamesPlayed: got %d, want %d", acc.Stats.GamesPlayed, n)
		}
	})

	t.Run("leaderboard order", func(t *testing.T) {
		r := newRepo(t)
		early := newAccount("early", base)
		late := newAccount("late", base.Add(time.Hour))
		champ := newAccount("champ", base.Add(2*time.Hour))
		for _, a := range []*models.Account{late, champ, early} {
			_ = r.CreateAccount(ctx, a)
		}
		for i := 0; i < 2; i++ {
			_, _ = r.CreateRecord(ctx, newRecord(champ.ID, models.WinnerPlayer, 3, base.Add(time.Duration(i)*time.Second)))
		}
		_, _ = r.CreateRecord(ctx, newRecord(early.ID, models.WinnerPlayer, 1, base))
		_, _ = r.CreateRecord(ctx, newRecord(late.ID, models.WinnerPlayer, 1, base))

		top, err := r.TopAccounts(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"champ", "early", "late"}
		if len(top) != len(want) {
			t.Fatalf("len: got %d, want %d", len(top), len(want))
		}
		for i, name := range want {
			if top[i].Username != name {
				t.Fatalf("rank %d: got %s, want %s", i, top[i].Username, name)
			}
		}
		if top[0].Stats.GamesWon != 2 {
			t.Fatalf("champ stats: %+v", top[0].Stats)
		}
		if short, _ := r.TopAccounts(ctx, 1); len(short) != 1 {
			t.Fatalf("limit 1: got %d", len(short))
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newRepo(t).Ping(ctx); err != nil {
			t.Fatal(err)
		}
	})
}
