package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/openclaw/ghostnet/api/internal/repository"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

// mockGameRepo is an in-memory GameRepository. Aggregates are stored as
// copies so tests exercise the real load-mutate-save cycle.
type mockGameRepo struct {
	mu      sync.Mutex
	games   map[uint64]conquest.Game
	players map[uint64][]conquest.PlayerState

	failSave bool
}

func newMockGameRepo() *mockGameRepo {
	return &mockGameRepo{
		games:   make(map[uint64]conquest.Game),
		players: make(map[uint64][]conquest.PlayerState),
	}
}

func (m *mockGameRepo) Create(_ context.Context, g *conquest.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.GameID]; ok {
		return repository.ErrDuplicate
	}
	m.games[g.GameID] = *g.Clone()
	return nil
}

func (m *mockGameRepo) FindByID(_ context.Context, gameID uint64) (*conquest.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (m *mockGameRepo) Save(_ context.Context, g *conquest.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errSaveFailed
	}
	m.games[g.GameID] = *g.Clone()
	return nil
}

func (m *mockGameRepo) SaveWithPlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error {
	if err := m.Save(ctx, g); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	players := m.players[g.GameID]
	for i := range players {
		if players[i].Player == ps.Player {
			players[i] = *ps
			return nil
		}
	}
	players = append(players, *ps)
	m.players[g.GameID] = players
	return nil
}

func (m *mockGameRepo) CreatePlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error {
	m.mu.Lock()
	for _, p := range m.players[g.GameID] {
		if p.Player == ps.Player {
			m.mu.Unlock()
			return repository.ErrDuplicate
		}
	}
	m.players[g.GameID] = append(m.players[g.GameID], *ps)
	m.mu.Unlock()
	return m.Save(ctx, g)
}

func (m *mockGameRepo) FindPlayer(_ context.Context, gameID uint64, player string) (*conquest.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players[gameID] {
		if p.Player == player {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockGameRepo) ListPlayers(_ context.Context, gameID uint64) ([]conquest.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]conquest.PlayerState(nil), m.players[gameID]...), nil
}

func (m *mockGameRepo) ListOpen(ctx context.Context) ([]conquest.Game, error) {
	return m.listByStatus(conquest.StatusLobby), nil
}

func (m *mockGameRepo) ListActive(ctx context.Context) ([]conquest.Game, error) {
	return m.listByStatus(conquest.StatusActive), nil
}

func (m *mockGameRepo) listByStatus(status conquest.Status) []conquest.Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []conquest.Game
	for _, g := range m.games {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out
}

// mockSnapshotCache is an in-memory SnapshotCache.
type mockSnapshotCache struct {
	mu        sync.Mutex
	snapshots map[uint64]json.RawMessage
	sets      int
}

func newMockSnapshotCache() *mockSnapshotCache {
	return &mockSnapshotCache{snapshots: make(map[uint64]json.RawMessage)}
}

func (m *mockSnapshotCache) SetSnapshot(_ context.Context, gameID uint64, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[gameID] = append(json.RawMessage(nil), state...)
	m.sets++
	return nil
}

func (m *mockSnapshotCache) GetSnapshot(_ context.Context, gameID uint64) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[gameID], nil
}

func (m *mockSnapshotCache) DeleteSnapshot(_ context.Context, gameID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, gameID)
	return nil
}

// recordingBroadcaster captures broadcast events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	GameID uint64
	Type   string
	Data   any
}

func (r *recordingBroadcaster) BroadcastGameEvent(gameID uint64, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{GameID: gameID, Type: eventType, Data: data})
}

func (r *recordingBroadcaster) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
