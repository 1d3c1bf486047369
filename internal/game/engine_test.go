package game

import (
	"testing"
	"time"

	"github.com/forestclash/go-server/internal/cards"
)

var (
	sapling    = cards.Card{ID: "tree-sapling", Type: cards.Tree, Value: 1}
	oak        = cards.Card{ID: "tree-oak", Type: cards.Tree, Value: 3}
	fire       = cards.Card{ID: "fire", Type: cards.Fire, Value: 1}
	lumberjack = cards.Card{ID: "lumberjack", Type: cards.Lumberjack, Value: 1}
	politician = cards.Card{ID: "politician", Type: cards.Politician}
	contract   = cards.Card{ID: "contract", Type: cards.Contract}
	wildfire   = cards.Card{ID: "wildfire", Type: cards.Wildfire}
	meteor     = cards.Card{ID: "meteor", Type: cards.Type("meteor"), Value: 7}
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		start State
		card  cards.Card
		want  State
	}{
		{"tree plants value", State{}, oak, State{PlayerTrees: 3}},
		{"tree blocked is no-op", State{PlayerTrees: 2, Blocked: true}, oak, State{PlayerTrees: 2, Blocked: true}},
		{"fire burns one enemy tree", State{EnemyTrees: 2}, fire, State{EnemyTrees: 1}},
		{"fire on empty forest", State{}, fire, State{}},
		{"lumberjack steals a tree", State{EnemyTrees: 3}, lumberjack, State{PlayerTrees: 1, EnemyTrees: 2}},
		{"lumberjack with nothing to steal", State{PlayerTrees: 4}, lumberjack, State{PlayerTrees: 4}},
		{"lumberjack ignores block", State{EnemyTrees: 1, Blocked: true}, lumberjack, State{PlayerTrees: 1, Blocked: true}},
		{"politician blocks", State{PlayerTrees: 1}, politician, State{PlayerTrees: 1, Blocked: true}},
		{"contract unblocks", State{Blocked: true}, contract, State{}},
		{"wildfire clears enemy", State{PlayerTrees: 2, EnemyTrees: 9}, wildfire, State{PlayerTrees: 2}},
		{"unknown type is no-op", State{PlayerTrees: 1, EnemyTrees: 1, Blocked: true}, meteor, State{PlayerTrees: 1, EnemyTrees: 1, Blocked: true}},
		{"negative tree floors at zero", State{PlayerTrees: 1}, cards.Card{ID: "blight", Type: cards.Tree, Value: -5}, State{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.start, tt.card); got != tt.want {
				t.Fatalf("Apply = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyNeverNegative(t *testing.T) {
	all := []cards.Card{sapling, oak, fire, lumberjack, politician, contract, wildfire, meteor,
		{ID: "blight", Type: cards.Tree, Value: -3}}
	for p := 0; p <= 3; p++ {
		for e := 0; e <= 3; e++ {
			for _, blocked := range []bool{false, true} {
				s := State{PlayerTrees: p, EnemyTrees: e, Blocked: blocked}
				for _, c := range all {
					got := Apply(s, c)
					if got.PlayerTrees < 0 || got.EnemyTrees < 0 {
						t.Fatalf("Apply(%+v, %s) = %+v has negative counter", s, c.ID, got)
					}
				}
			}
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := State{PlayerTrees: 1, EnemyTrees: 2}
	_ = Apply(s, wildfire)
	if s.EnemyTrees != 2 {
		t.Fatalf("input state was mutated: %+v", s)
	}
}

func TestContractIdempotent(t *testing.T) {
	s := State{PlayerTrees: 2, Blocked: true}
	once := Apply(s, contract)
	twice := Apply(once, contract)
	if once != twice || once.Blocked {
		t.Fatalf("once = %+v, twice = %+v", once, twice)
	}
}

func TestBlockingLaw(t *testing.T) {
	s := Replay(State{}, sapling, politician)
	if s.PlayerTrees != 1 {
		t.Fatalf("player trees = %d, want 1", s.PlayerTrees)
	}
	s = Replay(s, oak, sapling, fire, oak)
	if s.PlayerTrees != 1 {
		t.Fatalf("trees planted while blocked: %+v", s)
	}
	s = Replay(s, contract, oak)
	if s.PlayerTrees != 4 {
		t.Fatalf("player trees = %d after contract+oak, want 4", s.PlayerTrees)
	}
}

func TestLumberjackConservation(t *testing.T) {
	if got := Apply(State{PlayerTrees: 5}, lumberjack); got != (State{PlayerTrees: 5}) {
		t.Fatalf("lumberjack on empty enemy changed state: %+v", got)
	}
	start := State{PlayerTrees: 2, EnemyTrees: 3}
	got := Apply(start, lumberjack)
	if got.EnemyTrees != 2 || got.PlayerTrees != start.PlayerTrees+1 {
		t.Fatalf("got %+v, want enemy=2 player=%d", got, start.PlayerTrees+1)
	}
}

func TestWildfireAlwaysClears(t *testing.T) {
	for _, e := range []int{0, 1, 7, 1000} {
		if got := Apply(State{EnemyTrees: e}, wildfire); got.EnemyTrees != 0 {
			t.Fatalf("enemy trees = %d after wildfire from %d", got.EnemyTrees, e)
		}
	}
}

func TestSessionPlayAndOutcome(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("s1", "u1", start)

	s.Play(oak, start.Add(time.Second))
	s.Play(politician, start.Add(2*time.Second))
	s.Play(sapling, start.Add(3*time.Second))

	if len(s.Plays) != 3 || s.Plays[2].CardID != "tree-sapling" {
		t.Fatalf("plays = %+v", s.Plays)
	}
	if !s.UpdatedAt.Equal(start.Add(3 * time.Second)) {
		t.Fatalf("updatedAt = %v", s.UpdatedAt)
	}
	if d := s.Elapsed(start.Add(60 * time.Second)); d != time.Minute {
		t.Fatalf("elapsed = %v, want 1m", d)
	}

	ps, bs, w := s.Outcome()
	if ps != 3 || bs != 0 || w != WinnerPlayer {
		t.Fatalf("outcome = %d/%d/%s", ps, bs, w)
	}

	s.State = State{PlayerTrees: 1, EnemyTrees: 4}
	if _, _, w := s.Outcome(); w != WinnerBot {
		t.Fatalf("winner = %s, want bot", w)
	}
	s.State = State{PlayerTrees: 2, EnemyTrees: 2}
	if _, _, w := s.Outcome(); w != WinnerDraw {
		t.Fatalf("winner = %s, want draw", w)
	}
}
