package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

var errSaveFailed = errors.New("save failed")

func newTestService() (*GameService, *mockGameRepo, *mockSnapshotCache, *recordingBroadcaster) {
	repo := newMockGameRepo()
	cache := newMockSnapshotCache()
	bc := &recordingBroadcaster{}
	svc := NewGameService(repo, cache, bc)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, cache, bc
}

// seats two players and starts game 7 with alice as creator.
func newStartedGame(t *testing.T, svc *GameService) uint64 {
	t.Helper()
	ctx := context.Background()
	const gameID = 7
	if _, err := svc.CreateGame(ctx, gameID, "alice", 500); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.JoinGame(ctx, gameID, "alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := svc.JoinGame(ctx, gameID, "bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}
	if _, err := svc.StartGame(ctx, gameID, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	return gameID
}

func TestCreateGame(t *testing.T) {
	svc, repo, cache, _ := newTestService()
	ctx := context.Background()

	g, err := svc.CreateGame(ctx, 42, "alice", 1000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Status != conquest.StatusLobby || g.Creator != "alice" || g.StakeAmount != 1000 {
		t.Errorf("wrong game: %+v", g)
	}

	stored, _ := repo.FindByID(ctx, 42)
	if stored == nil {
		t.Fatal("game not persisted")
	}
	if cache.sets == 0 {
		t.Error("expected snapshot write on create")
	}

	if _, err := svc.CreateGame(ctx, 42, "bob", 0); !errors.Is(err, ErrGameExists) {
		t.Errorf("duplicate id: expected ErrGameExists, got %v", err)
	}
}

func TestJoinGame(t *testing.T) {
	svc, repo, _, bc := newTestService()
	ctx := context.Background()
	svc.CreateGame(ctx, 1, "alice", 0)

	ps, err := svc.JoinGame(ctx, 1, "alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if ps.PlayerIndex != 0 || ps.Gold != conquest.InitialGold {
		t.Errorf("wrong player state: %+v", ps)
	}

	if _, err := svc.JoinGame(ctx, 1, "alice"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("expected ErrAlreadyJoined, got %v", err)
	}
	if _, err := svc.JoinGame(ctx, 99, "bob"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}

	for _, name := range []string{"bob", "carol", "dave"} {
		if _, err := svc.JoinGame(ctx, 1, name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	if _, err := svc.JoinGame(ctx, 1, "eve"); !errors.Is(err, conquest.ErrGameFull) {
		t.Errorf("expected ErrGameFull, got %v", err)
	}

	g, _ := repo.FindByID(ctx, 1)
	if g.PlayerCount != 4 {
		t.Errorf("expected 4 players persisted, got %d", g.PlayerCount)
	}

	types := bc.types()
	if len(types) != 4 || types[0] != "player_joined" {
		t.Errorf("expected 4 player_joined events, got %v", types)
	}
}

func TestStartGame(t *testing.T) {
	svc, repo, _, bc := newTestService()
	ctx := context.Background()
	svc.CreateGame(ctx, 1, "alice", 0)
	svc.JoinGame(ctx, 1, "alice")

	if _, err := svc.StartGame(ctx, 1, "alice"); !errors.Is(err, conquest.ErrNotEnoughPlayers) {
		t.Errorf("expected ErrNotEnoughPlayers, got %v", err)
	}

	svc.JoinGame(ctx, 1, "bob")
	if _, err := svc.StartGame(ctx, 1, "bob"); !errors.Is(err, conquest.ErrNotCreator) {
		t.Errorf("expected ErrNotCreator, got %v", err)
	}

	g, err := svc.StartGame(ctx, 1, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if g.Status != conquest.StatusActive {
		t.Errorf("expected active, got %s", g.Status)
	}

	stored, _ := repo.FindByID(ctx, 1)
	if stored.Status != conquest.StatusActive {
		t.Error("start not persisted")
	}

	found := false
	for _, typ := range bc.types() {
		if typ == "game_started" {
			found = true
		}
	}
	if !found {
		t.Error("expected game_started broadcast")
	}
}

func TestMoveUnits_PersistsBothAggregates(t *testing.T) {
	svc, repo, _, bc := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	// alice is P0 in the (0,0) corner; expand right from (1,0).
	out, err := svc.MoveUnits(ctx, gameID, "alice", 1, 0, 2, 0, 1)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !out.Expanded {
		t.Errorf("expected expansion, got %+v", out)
	}

	g, _ := repo.FindByID(ctx, gameID)
	if g.Turn != 1 {
		t.Errorf("expected persisted turn 1, got %d", g.Turn)
	}
	ps, _ := repo.FindPlayer(ctx, gameID, "alice")
	if ps.Score != 40+10 {
		t.Errorf("expected persisted score 50, got %d", ps.Score)
	}

	found := false
	for _, typ := range bc.types() {
		if typ == "units_moved" {
			found = true
		}
	}
	if !found {
		t.Error("expected units_moved broadcast")
	}
}

func TestMoveUnits_EngineErrorLeavesStateUntouched(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	if _, err := svc.MoveUnits(ctx, gameID, "alice", 0, 0, 3, 3, 1); !errors.Is(err, conquest.ErrNotAdjacent) {
		t.Fatalf("expected ErrNotAdjacent, got %v", err)
	}

	g, _ := repo.FindByID(ctx, gameID)
	if g.Turn != 0 {
		t.Errorf("failed move must not persist a turn, got %d", g.Turn)
	}

	if _, err := svc.MoveUnits(ctx, gameID, "mallory", 0, 0, 1, 0, 1); !errors.Is(err, ErrNotInGame) {
		t.Errorf("expected ErrNotInGame, got %v", err)
	}
}

func TestBuildTrainCollect(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	if err := svc.BuildDefense(ctx, gameID, "bob", 6, 0); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := svc.TrainUnits(ctx, gameID, "bob", 6, 0, 2); err != nil {
		t.Fatalf("train: %v", err)
	}
	yield, err := svc.CollectResources(ctx, gameID, "bob")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if yield.Gold != 4*conquest.ResourcePerTick {
		t.Errorf("expected %d gold yield, got %d", 4*conquest.ResourcePerTick, yield.Gold)
	}

	ps, _ := repo.FindPlayer(ctx, gameID, "bob")
	wantGold := uint64(conquest.InitialGold) - 2*conquest.UnitCostGold + yield.Gold
	if ps.Gold != wantGold {
		t.Errorf("expected persisted gold %d, got %d", wantGold, ps.Gold)
	}
	if ps.Units != conquest.InitialUnits+2 {
		t.Errorf("expected persisted units %d, got %d", conquest.InitialUnits+2, ps.Units)
	}
	if ps.Score != 40+20 {
		t.Errorf("expected persisted score 60, got %d", ps.Score)
	}
}

func TestSetStrategy(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	if err := svc.SetStrategy(ctx, gameID, "bob", "reckless"); !errors.Is(err, ErrInvalidStrategy) {
		t.Errorf("expected ErrInvalidStrategy, got %v", err)
	}
	if err := svc.SetStrategy(ctx, gameID, "bob", conquest.StrategyEconomic); err != nil {
		t.Fatalf("set strategy: %v", err)
	}

	ps, _ := repo.FindPlayer(ctx, gameID, "bob")
	if ps.Strategy != conquest.StrategyEconomic {
		t.Errorf("expected economic, got %s", ps.Strategy)
	}
}

func TestEndGame(t *testing.T) {
	svc, repo, _, bc := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	// bob pulls ahead on score.
	if err := svc.BuildDefense(ctx, gameID, "bob", 6, 0); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := svc.EndGame(ctx, gameID, "bob"); !errors.Is(err, conquest.ErrNotCreator) {
		t.Errorf("expected ErrNotCreator, got %v", err)
	}

	g, err := svc.EndGame(ctx, gameID, "alice")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if g.Status != conquest.StatusFinished {
		t.Errorf("expected finished, got %s", g.Status)
	}
	if g.Winner != "bob" {
		t.Errorf("expected bob (score 60 vs 40) to win, got %q", g.Winner)
	}

	stored, _ := repo.FindByID(ctx, gameID)
	if stored.Winner != "bob" || stored.FinishedAt == nil {
		t.Error("end not persisted")
	}

	if _, err := svc.EndGame(ctx, gameID, "alice"); !errors.Is(err, conquest.ErrGameNotActive) {
		t.Errorf("double end: expected ErrGameNotActive, got %v", err)
	}

	found := false
	for _, typ := range bc.types() {
		if typ == "game_ended" {
			found = true
		}
	}
	if !found {
		t.Error("expected game_ended broadcast")
	}
}

func TestEndGame_TieGoesToEarlierJoiner(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	g, err := svc.EndGame(ctx, gameID, "alice")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	// Both players hold their starting 40 points.
	if g.Winner != "alice" {
		t.Errorf("expected alice (index 0) on tie, got %q", g.Winner)
	}
}

func TestGetSnapshot(t *testing.T) {
	svc, _, cache, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	data, err := svc.GetSnapshot(ctx, gameID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Game == nil || snap.Game.GameID != gameID {
		t.Fatal("snapshot missing game")
	}
	if len(snap.Players) != 2 {
		t.Errorf("expected 2 players in snapshot, got %d", len(snap.Players))
	}

	// Cache miss falls back to the store and repopulates.
	cache.DeleteSnapshot(ctx, gameID)
	data, err = svc.GetSnapshot(ctx, gameID)
	if err != nil || data == nil {
		t.Fatalf("rebuild snapshot: %v", err)
	}
	if got, _ := cache.GetSnapshot(ctx, gameID); got == nil {
		t.Error("expected rebuilt snapshot to be cached")
	}
}

func TestListGames(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	svc.CreateGame(ctx, 1, "alice", 0)
	newStartedGame(t, svc) // game 7

	open, err := svc.ListGames(ctx, "")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].GameID != 1 {
		t.Errorf("expected one open game (1), got %+v", open)
	}

	active, err := svc.ListGames(ctx, "active")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].GameID != 7 {
		t.Errorf("expected one active game (7), got %+v", active)
	}
}

func TestSaveFailurePropagates(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	repo.failSave = true
	if _, err := svc.MoveUnits(ctx, gameID, "alice", 1, 0, 2, 0, 1); !errors.Is(err, errSaveFailed) {
		t.Errorf("expected save error to surface, got %v", err)
	}
}

// Commands against the same game must serialize: concurrent collects may
// not interleave between load and save, so every yield lands in the
// persisted ledger.
func TestCommands_SerializePerGame(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	gameID := newStartedGame(t, svc)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.CollectResources(ctx, gameID, "alice"); err != nil {
				t.Errorf("collect: %v", err)
			}
		}()
	}
	wg.Wait()

	ps, _ := repo.FindPlayer(ctx, gameID, "alice")
	want := uint64(conquest.InitialGold + n*4*conquest.ResourcePerTick)
	if ps.Gold != want {
		t.Errorf("expected gold %d after %d serialized collects, got %d", want, n, ps.Gold)
	}
}
