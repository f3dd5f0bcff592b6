package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openclaw/ghostnet/api/internal/model"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint (game ID already taken, player already joined).
var ErrDuplicate = errors.New("duplicate row")

// UserRepository defines user identity operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

// GameRepository defines aggregate storage for games and their players.
// Find methods return (nil, nil) when the row does not exist; callers
// translate that into their own not-found errors.
type GameRepository interface {
	// Create inserts a new game row. Game IDs are caller-chosen;
	// inserting a duplicate returns ErrDuplicate.
	Create(ctx context.Context, g *conquest.Game) error
	FindByID(ctx context.Context, gameID uint64) (*conquest.Game, error)
	// Save persists the full game row, grid included.
	Save(ctx context.Context, g *conquest.Game) error
	// SaveWithPlayer persists the game and one player state in a single
	// transaction, so a command's effects land atomically or not at all.
	SaveWithPlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error

	// CreatePlayer inserts a player row inside the same transaction as
	// the game save (used by join). Duplicate (game, player) pairs
	// return ErrDuplicate.
	CreatePlayer(ctx context.Context, g *conquest.Game, ps *conquest.PlayerState) error
	FindPlayer(ctx context.Context, gameID uint64, player string) (*conquest.PlayerState, error)
	ListPlayers(ctx context.Context, gameID uint64) ([]conquest.PlayerState, error)

	ListOpen(ctx context.Context) ([]conquest.Game, error)
	ListActive(ctx context.Context) ([]conquest.Game, error)
}

// SnapshotCache stores frozen game snapshots (Redis). A snapshot is the
// full read-only JSON view of a game written after every successful
// command; observers and external agents read it without touching
// Postgres.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, gameID uint64, state json.RawMessage) error
	GetSnapshot(ctx context.Context, gameID uint64) (json.RawMessage, error)
	DeleteSnapshot(ctx context.Context, gameID uint64) error
}
