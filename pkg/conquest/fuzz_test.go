package conquest

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

// FuzzGameCommands drives a full game through random command sequences and
// checks that the rules engine never panics and never breaks its
// invariants, whatever the players attempt.
func FuzzGameCommands(f *testing.F) {
	f.Add(int64(1))
	f.Add(int64(42))
	f.Add(int64(987654))

	f.Fuzz(func(t *testing.T, seed int64) {
		rng := rand.New(rand.NewSource(seed))

		g := NewGame(uint64(rng.Int63()), "p0", 0, time.Unix(1700000000, 0))
		names := []string{"p0", "p1", "p2", "p3"}
		n := 2 + rng.Intn(3)
		players := make([]*PlayerState, 0, n)
		for i := 0; i < n; i++ {
			ps, err := g.Join(names[i])
			if err != nil {
				t.Fatalf("join %d: %v", i, err)
			}
			players = append(players, ps)
		}
		if err := g.Start("p0", time.Unix(1700000100, 0)); err != nil {
			t.Fatalf("start: %v", err)
		}

		for step := 0; step < 300; step++ {
			ps := players[rng.Intn(len(players))]
			turnBefore := g.Turn
			scoreBefore := ps.Score

			var err error
			moved := false
			switch rng.Intn(5) {
			case 0:
				moved = true
				_, err = g.MoveUnits(ps,
					rng.Intn(10)-1, rng.Intn(10)-1,
					rng.Intn(10)-1, rng.Intn(10)-1,
					rng.Intn(6)-1)
			case 1:
				err = g.BuildDefense(ps, rng.Intn(10)-1, rng.Intn(10)-1)
			case 2:
				err = g.TrainUnits(ps, rng.Intn(10)-1, rng.Intn(10)-1, rng.Intn(6)-1)
			case 3:
				_, err = g.CollectResources(ps)
			case 4:
				ps.SetStrategy(StrategyAggressive)
			}

			if err != nil {
				if Code(err) == "" {
					t.Fatalf("step %d: unclassified error %v", step, err)
				}
				if g.Turn != turnBefore {
					t.Fatalf("step %d: failed command advanced the turn", step)
				}
			} else if moved && g.Turn != turnBefore+1 {
				t.Fatalf("step %d: successful move advanced turn by %d", step, g.Turn-turnBefore)
			}

			if ps.Score < scoreBefore {
				t.Fatalf("step %d: score decreased %d -> %d", step, scoreBefore, ps.Score)
			}
			if ps.Units > MaxUnits {
				t.Fatalf("step %d: unit ledger above cap: %d", step, ps.Units)
			}
		}

		checkBoardInvariants(t, g, len(players))

		// The wire codec must survive whatever board the fuzzer produced.
		data, err := json.Marshal(g.Grid)
		if err != nil {
			t.Fatalf("marshal fuzzed grid: %v", err)
		}
		var back Grid
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal fuzzed grid: %v", err)
		}
		if !reflect.DeepEqual(g.Grid, back) {
			t.Fatal("fuzzed grid did not round-trip")
		}
	})
}

func checkBoardInvariants(t *testing.T, g *Game, playerCount int) {
	t.Helper()
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			tile, err := g.Grid.At(x, y)
			if err != nil {
				t.Fatalf("At(%d,%d): %v", x, y, err)
			}
			switch tt := tile.(type) {
			case Empty:
			case Owned:
				if tt.Player < 0 || tt.Player >= playerCount {
					t.Fatalf("tile (%d,%d) owned by unknown player %d", x, y, tt.Player)
				}
				if tt.Units < 0 {
					t.Fatalf("tile (%d,%d) has negative garrison %d", x, y, tt.Units)
				}
			case Deposit:
				if tt.Amount == 0 {
					t.Fatalf("tile (%d,%d) is an empty deposit", x, y)
				}
			default:
				t.Fatalf("tile (%d,%d) has unknown variant %T", x, y, tile)
			}
		}
	}
}
