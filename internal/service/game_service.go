package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/ghostnet/api/internal/repository"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrGameExists      = errors.New("game id already taken")
	ErrAlreadyJoined   = errors.New("already joined this game")
	ErrNotInGame       = errors.New("you are not in this game")
	ErrInvalidStrategy = errors.New("unknown strategy mode")
)

// Snapshot is the frozen read-only view of a game written to the cache
// after every successful command. External observers and agents consume
// it instead of querying the primary store.
type Snapshot struct {
	Game    *conquest.Game         `json:"game"`
	Players []conquest.PlayerState `json:"players"`
	TakenAt time.Time              `json:"taken_at"`
}

// GameService carries the game commands. Every mutating command follows
// the same shape: acquire the per-game lock, load aggregates, run the
// rules engine, persist atomically, refresh the snapshot, broadcast.
type GameService struct {
	games repository.GameRepository
	cache repository.SnapshotCache
	bc    Broadcaster
	locks *gameLocks
	now   func() time.Time
}

// NewGameService creates a GameService.
func NewGameService(games repository.GameRepository, cache repository.SnapshotCache, bc Broadcaster) *GameService {
	if bc == nil {
		bc = NoopBroadcaster{}
	}
	return &GameService{
		games: games,
		cache: cache,
		bc:    bc,
		locks: newGameLocks(),
		now:   time.Now,
	}
}

// CreateGame creates a new lobby under a creator-chosen game ID.
func (s *GameService) CreateGame(ctx context.Context, gameID uint64, creatorID string, stake uint64) (*conquest.Game, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g := conquest.NewGame(gameID, creatorID, stake, s.now())
	if err := s.games.Create(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrGameExists
		}
		return nil, err
	}

	s.refreshSnapshot(ctx, g, nil)
	log.Info().Uint64("game_id", gameID).Str("creator", creatorID).Msg("game created")
	return g, nil
}

// JoinGame seats the caller in a lobby game, claiming the next free
// corner.
func (s *GameService) JoinGame(ctx context.Context, gameID uint64, playerID string) (*conquest.PlayerState, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	existing, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	ps, err := g.Join(playerID)
	if err != nil {
		return nil, err
	}
	if err := s.games.CreatePlayer(ctx, g, ps); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.writeSnapshot(ctx, g, players)
	s.bc.BroadcastGameEvent(gameID, "player_joined", ps)
	return ps, nil
}

// StartGame transitions a lobby to active. Creator only, two or more
// players.
func (s *GameService) StartGame(ctx context.Context, gameID uint64, callerID string) (*conquest.Game, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := g.Start(callerID, s.now()); err != nil {
		return nil, err
	}
	if err := s.games.Save(ctx, g); err != nil {
		return nil, err
	}

	s.refreshSnapshot(ctx, g, nil)
	s.bc.BroadcastGameEvent(gameID, "game_started", g)
	log.Info().Uint64("game_id", gameID).Int("players", g.PlayerCount).Msg("game started")
	return g, nil
}

// MoveUnits moves units between adjacent tiles, resolving expansion,
// reinforcement, combat, or deposit capture.
func (s *GameService) MoveUnits(ctx context.Context, gameID uint64, playerID string, fromX, fromY, toX, toY, count int) (*conquest.MoveOutcome, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g, ps, err := s.loadGameAndPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	out, err := g.MoveUnits(ps, fromX, fromY, toX, toY, count)
	if err != nil {
		return nil, err
	}
	if err := s.games.SaveWithPlayer(ctx, g, ps); err != nil {
		return nil, err
	}

	s.refreshSnapshot(ctx, g, nil)
	s.bc.BroadcastGameEvent(gameID, "units_moved", map[string]any{
		"player":  playerID,
		"from":    [2]int{fromX, fromY},
		"to":      [2]int{toX, toY},
		"count":   count,
		"outcome": out,
		"turn":    g.Turn,
	})
	return out, nil
}

// BuildDefense fortifies one of the caller's tiles.
func (s *GameService) BuildDefense(ctx context.Context, gameID uint64, playerID string, x, y int) error {
	release := s.locks.acquire(gameID)
	defer release()

	g, ps, err := s.loadGameAndPlayer(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if err := g.BuildDefense(ps, x, y); err != nil {
		return err
	}
	if err := s.games.SaveWithPlayer(ctx, g, ps); err != nil {
		return err
	}

	s.refreshSnapshot(ctx, g, nil)
	s.bc.BroadcastGameEvent(gameID, "defense_built", map[string]any{
		"player": playerID, "x": x, "y": y,
	})
	return nil
}

// TrainUnits recruits units onto one of the caller's tiles.
func (s *GameService) TrainUnits(ctx context.Context, gameID uint64, playerID string, x, y, count int) error {
	release := s.locks.acquire(gameID)
	defer release()

	g, ps, err := s.loadGameAndPlayer(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	if err := g.TrainUnits(ps, x, y, count); err != nil {
		return err
	}
	if err := s.games.SaveWithPlayer(ctx, g, ps); err != nil {
		return err
	}

	s.refreshSnapshot(ctx, g, nil)
	s.bc.BroadcastGameEvent(gameID, "units_trained", map[string]any{
		"player": playerID, "x": x, "y": y, "count": count,
	})
	return nil
}

// CollectResources harvests the caller's whole territory.
func (s *GameService) CollectResources(ctx context.Context, gameID uint64, playerID string) (conquest.CollectYield, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g, ps, err := s.loadGameAndPlayer(ctx, gameID, playerID)
	if err != nil {
		return conquest.CollectYield{}, err
	}

	yield, err := g.CollectResources(ps)
	if err != nil {
		return conquest.CollectYield{}, err
	}
	if err := s.games.SaveWithPlayer(ctx, g, ps); err != nil {
		return conquest.CollectYield{}, err
	}

	s.refreshSnapshot(ctx, g, nil)
	s.bc.BroadcastGameEvent(gameID, "resources_collected", map[string]any{
		"player": playerID, "yield": yield,
	})
	return yield, nil
}

// SetStrategy updates the caller's advertised strategy tag.
func (s *GameService) SetStrategy(ctx context.Context, gameID uint64, playerID string, mode conquest.StrategyMode) error {
	if !conquest.ValidStrategy(mode) {
		return ErrInvalidStrategy
	}

	release := s.locks.acquire(gameID)
	defer release()

	g, ps, err := s.loadGameAndPlayer(ctx, gameID, playerID)
	if err != nil {
		return err
	}
	ps.SetStrategy(mode)
	if err := s.games.SaveWithPlayer(ctx, g, ps); err != nil {
		return err
	}

	s.refreshSnapshot(ctx, g, nil)
	return nil
}

// EndGame finishes an active game and records the winner: highest score,
// ties to the earliest joiner. Only the creator can end a game.
func (s *GameService) EndGame(ctx context.Context, gameID uint64, callerID string) (*conquest.Game, error) {
	release := s.locks.acquire(gameID)
	defer release()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Creator != callerID {
		return nil, conquest.ErrNotCreator
	}
	if err := g.Finish(s.now()); err != nil {
		return nil, err
	}

	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g.Winner = conquest.DecideWinner(players)

	if err := s.games.Save(ctx, g); err != nil {
		return nil, err
	}

	s.writeSnapshot(ctx, g, players)
	s.bc.BroadcastGameEvent(gameID, "game_ended", g)
	log.Info().Uint64("game_id", gameID).Str("winner", g.Winner).Msg("game ended")
	return g, nil
}

// GetGame returns a game by ID.
func (s *GameService) GetGame(ctx context.Context, gameID uint64) (*conquest.Game, error) {
	return s.loadGame(ctx, gameID)
}

// GetPlayer returns one player's state in a game.
func (s *GameService) GetPlayer(ctx context.Context, gameID uint64, playerID string) (*conquest.PlayerState, error) {
	if _, err := s.loadGame(ctx, gameID); err != nil {
		return nil, err
	}
	ps, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		return nil, ErrNotInGame
	}
	return ps, nil
}

// ListGames returns open lobbies, or active games with filter "active".
func (s *GameService) ListGames(ctx context.Context, filter string) ([]conquest.Game, error) {
	if filter == "active" {
		return s.games.ListActive(ctx)
	}
	return s.games.ListOpen(ctx)
}

// GetSnapshot returns the frozen snapshot for observers, rebuilding it
// from the primary store if the cache has none.
func (s *GameService) GetSnapshot(ctx context.Context, gameID uint64) (json.RawMessage, error) {
	data, err := s.cache.GetSnapshot(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Uint64("game_id", gameID).Msg("snapshot cache read failed")
	}
	if data != nil {
		return data, nil
	}

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.games.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.writeSnapshot(ctx, g, players), nil
}

func (s *GameService) loadGame(ctx context.Context, gameID uint64) (*conquest.Game, error) {
	g, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

func (s *GameService) loadGameAndPlayer(ctx context.Context, gameID uint64, playerID string) (*conquest.Game, *conquest.PlayerState, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	ps, err := s.games.FindPlayer(ctx, gameID, playerID)
	if err != nil {
		return nil, nil, err
	}
	if ps == nil {
		return nil, nil, ErrNotInGame
	}
	return g, ps, nil
}

// refreshSnapshot loads the player list and writes the snapshot. Cache
// failures are logged, never surfaced: the primary store already holds
// the truth.
func (s *GameService) refreshSnapshot(ctx context.Context, g *conquest.Game, players []conquest.PlayerState) {
	if players == nil {
		var err error
		players, err = s.games.ListPlayers(ctx, g.GameID)
		if err != nil {
			log.Warn().Err(err).Uint64("game_id", g.GameID).Msg("snapshot player load failed")
			return
		}
	}
	s.writeSnapshot(ctx, g, players)
}

func (s *GameService) writeSnapshot(ctx context.Context, g *conquest.Game, players []conquest.PlayerState) json.RawMessage {
	snap := Snapshot{Game: g.Clone(), Players: players, TakenAt: s.now()}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Uint64("game_id", g.GameID).Msg("snapshot encode failed")
		return nil
	}
	if err := s.cache.SetSnapshot(ctx, g.GameID, data); err != nil {
		log.Warn().Err(err).Uint64("game_id", g.GameID).Msg("snapshot write failed")
	}
	return data
}
