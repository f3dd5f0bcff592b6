package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/openclaw/ghostnet/api/internal/repository"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

// GameRepo handles game and player row storage. The grid is stored as
// JSONB in the games table using the engine's tagged-union codec.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// Create inserts a new game row. Game IDs are chosen by the creator, so a
// collision is a caller error, reported as ErrDuplicate.
func (r *GameRepo) Create(ctx context.Context, g *conquest.Game) error {
	grid, err := json.Marshal(g.Grid)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO games (game_id, creator, stake_amount, player_count, status, turn, grid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		int64(g.GameID), g.Creator, int64(g.StakeAmount), g.PlayerCount, string(g.Status), int64(g.Turn), grid, g.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// FindByID returns a game by its ID, or (nil, nil) when absent.
func (r *GameRepo) FindByID(ctx context.Context, gameID uint64) (*conquest.Game, error) {
	return scanGame(r.db.QueryRowContext(ctx,
		`SELECT game_id, creator, stake_amount, player_count, status, turn, winner, grid, created_at, started_at, finished_at
		 FROM games WHERE game_id = $1`, int64(gameID)))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*conquest.Game, error) {
	var (
		g         conquest.Game
		id, stake int64
		turn      int64
		status    string
		winner    sql.NullString
		grid      []byte
	)
	err := row.Scan(&id, &g.Creator, &stake, &g.PlayerCount, &status, &turn, &winner, &grid, &g.CreatedAt, &g.StartedAt, &g.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.GameID = uint64(id)
	g.StakeAmount = uint64(stake)
	g.Turn = uint64(turn)
	g.Status = conquest.Status(status)
	g.Winner = winner.String
	if err := json.Unmarshal(grid, &g.Grid); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	return &g, nil
}

func saveGameTx(ctx context.Context, tx *sql.Tx, g *conquest.Game) error {
	grid, err := json.Marshal(g.Grid)
	if err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE games
		 SET player_count = $2, status = $3, turn = $4, winner = NULLIF($5, ''), grid = $6,
		     started_at = $7, finished_at = $8
		 WHERE game_id = $1`,
		int64(g.GameID), g.PlayerCount, string(g.Status), int64(g.Turn), g.Winner, grid, g.StartedAt, g.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save game %d: row missing", g.GameID)
	}
	return nil
}

func savePlayerTx(ctx context.Context, tx *sql.Tx, ps *conquest.PlayerState) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE players
		 SET gold = $3, wood = $4, units = $5, score = $6, is_alive = $7, strategy = $8
		 WHERE game_id = $1 AND player = $2`,
		int64(ps.GameID), ps.Player, int64(ps.Gold), int64(ps.Wood), ps.Units, int64(ps.Score), ps.IsAlive, string(ps.Strategy),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save player %s in game %d: row missing", ps.Player, ps.GameID)
	}
	return nil
}

// Save persists the full game row.
func (r *GameRepo) Save(ctx context.Context, g *conquest.Game) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := saveGameTx(ctx, tx, g); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveWithPlayer persists a game and one player state in a single
// transaction. Commands that touch both aggregates go through here so
// their effects land atomically.
func (r *GameRepo) SaveWithPlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := saveGameTx(ctx, tx, g); err != nil {
		return err
	}
	if err := savePlayerTx(ctx, tx, ps); err != nil {
		return err
	}
	return tx.Commit()
}

// CreatePlayer inserts a new player row and updates the game row in one
// transaction (used by join).
func (r *GameRepo) CreatePlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO players (game_id, player, player_index, gold, wood, units, score, is_alive, strategy)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		int64(ps.GameID), ps.Player, ps.PlayerIndex, int64(ps.Gold), int64(ps.Wood), ps.Units, int64(ps.Score), ps.IsAlive, string(ps.Strategy),
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}

	if err := saveGameTx(ctx, tx, g); err != nil {
		return err
	}
	return tx.Commit()
}

// FindPlayer returns one player's state, or (nil, nil) when absent.
func (r *GameRepo) FindPlayer(ctx context.Context, gameID uint64, player string) (*conquest.PlayerState, error) {
	ps, err := scanPlayer(r.db.QueryRowContext(ctx,
		`SELECT game_id, player, player_index, gold, wood, units, score, is_alive, strategy
		 FROM players WHERE game_id = $1 AND player = $2`,
		int64(gameID), player))
	if err != nil {
		return nil, err
	}
	return ps, nil
}

func scanPlayer(row rowScanner) (*conquest.PlayerState, error) {
	var (
		ps                conquest.PlayerState
		id                int64
		gold, wood, score int64
		strategy          string
	)
	err := row.Scan(&id, &ps.Player, &ps.PlayerIndex, &gold, &wood, &ps.Units, &score, &ps.IsAlive, &strategy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan player: %w", err)
	}
	ps.GameID = uint64(id)
	ps.Gold = uint64(gold)
	ps.Wood = uint64(wood)
	ps.Score = uint64(score)
	ps.Strategy = conquest.StrategyMode(strategy)
	return &ps, nil
}

// ListPlayers returns all players in a game in join order.
func (r *GameRepo) ListPlayers(ctx context.Context, gameID uint64) ([]conquest.PlayerState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, player, player_index, gold, wood, units, score, is_alive, strategy
		 FROM players WHERE game_id = $1 ORDER BY player_index`,
		int64(gameID))
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []conquest.PlayerState
	for rows.Next() {
		ps, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *ps)
	}
	return players, rows.Err()
}

// ListOpen returns lobby games awaiting players, newest first.
func (r *GameRepo) ListOpen(ctx context.Context) ([]conquest.Game, error) {
	return r.listByStatus(ctx, conquest.StatusLobby)
}

// ListActive returns running games, newest first.
func (r *GameRepo) ListActive(ctx context.Context) ([]conquest.Game, error) {
	return r.listByStatus(ctx, conquest.StatusActive)
}

func (r *GameRepo) listByStatus(ctx context.Context, status conquest.Status) ([]conquest.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_id, creator, stake_amount, player_count, status, turn, winner, grid, created_at, started_at, finished_at
		 FROM games WHERE status = $1 ORDER BY created_at DESC LIMIT 50`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list %s games: %w", status, err)
	}
	defer rows.Close()

	var games []conquest.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}
