package conquest

import "time"

// Game balance constants, shared with the original on-chain deployment.
const (
	MaxPlayers      = 4
	MaxUnits        = 20
	InitialGold     = 100
	InitialWood     = 50
	InitialUnits    = 3
	UnitCostGold    = 25
	DefenseCostWood = 30
	ResourcePerTick = 5

	scoreExpand  = 10
	scoreDefense = 20
	scoreConquer = 50
	scoreCapture = 100
)

// Status is the game lifecycle state.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// StrategyMode is an informational tag read by external agents. The engine
// stores it and never interprets it.
type StrategyMode string

const (
	StrategyAggressive StrategyMode = "aggressive"
	StrategyDefensive  StrategyMode = "defensive"
	StrategyBalanced   StrategyMode = "balanced"
	StrategyEconomic   StrategyMode = "economic"
)

// ValidStrategy reports whether s is one of the four known modes.
func ValidStrategy(s StrategyMode) bool {
	switch s {
	case StrategyAggressive, StrategyDefensive, StrategyBalanced, StrategyEconomic:
		return true
	}
	return false
}

// Game is the per-match aggregate. GameID and Creator are immutable after
// creation; StakeAmount is opaque to the engine (escrow is an external
// concern).
type Game struct {
	GameID      uint64     `json:"game_id"`
	Creator     string     `json:"creator"`
	StakeAmount uint64     `json:"stake_amount"`
	PlayerCount int        `json:"player_count"`
	Status      Status     `json:"status"`
	Turn        uint64     `json:"turn"`
	Winner      string     `json:"winner,omitempty"`
	Grid        Grid       `json:"grid"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// PlayerState is the per-player aggregate within one game.
//
// Units is a ledger counter, not a board sum: it grows on training and is
// never reduced when tiles are lost in combat, so it can drift above the
// true garrison total. Use Grid.GarrisonTotal for the board truth.
type PlayerState struct {
	GameID      uint64       `json:"game_id"`
	Player      string       `json:"player"`
	PlayerIndex int          `json:"player_index"`
	Gold        uint64       `json:"gold"`
	Wood        uint64       `json:"wood"`
	Units       int          `json:"units"`
	Score       uint64       `json:"score"`
	IsAlive     bool         `json:"is_alive"`
	Strategy    StrategyMode `json:"strategy"`
}

// NewGame creates a game in the lobby with an all-empty board.
func NewGame(gameID uint64, creator string, stakeAmount uint64, now time.Time) *Game {
	return &Game{
		GameID:      gameID,
		Creator:     creator,
		StakeAmount: stakeAmount,
		Status:      StatusLobby,
		Grid:        NewGrid(),
		CreatedAt:   now,
	}
}

// startingCorner returns the top-left cell of a player's fixed 2×2
// starting territory, in (x, y) order.
func startingCorner(playerIndex int) (int, int) {
	switch playerIndex {
	case 0:
		return 0, 0
	case 1:
		return 6, 0
	case 2:
		return 0, 6
	default:
		return 6, 6
	}
}

// Join adds a player to a lobby game: assigns the next player index,
// claims the matching 2×2 corner with one unit per tile, and returns the
// player's initial ledger.
func (g *Game) Join(player string) (*PlayerState, error) {
	if g.Status != StatusLobby {
		return nil, ErrGameNotInLobby
	}
	if g.PlayerCount >= MaxPlayers {
		return nil, ErrGameFull
	}

	idx := g.PlayerCount
	g.PlayerCount++

	cx, cy := startingCorner(idx)
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			g.Grid.set(cx+dx, cy+dy, Owned{Player: idx, Units: 1})
		}
	}

	return &PlayerState{
		GameID:      g.GameID,
		Player:      player,
		PlayerIndex: idx,
		Gold:        InitialGold,
		Wood:        InitialWood,
		Units:       InitialUnits,
		Score:       4 * scoreExpand, // 2×2 starting tiles
		IsAlive:     true,
		Strategy:    StrategyBalanced,
	}, nil
}

// Start transitions Lobby→Active. Only the creator may start, and at
// least two players must have joined. Four resource deposits appear at
// the board center.
func (g *Game) Start(caller string, now time.Time) error {
	if g.Status != StatusLobby {
		return ErrGameNotInLobby
	}
	if g.PlayerCount < 2 {
		return ErrNotEnoughPlayers
	}
	if caller != g.Creator {
		return ErrNotCreator
	}

	g.Grid.set(3, 3, Deposit{Resource: Gold, Amount: 500})
	g.Grid.set(4, 4, Deposit{Resource: Gold, Amount: 500})
	g.Grid.set(3, 4, Deposit{Resource: Wood, Amount: 300})
	g.Grid.set(4, 3, Deposit{Resource: Wood, Amount: 300})

	g.Status = StatusActive
	g.StartedAt = &now
	return nil
}

// Finish transitions Active→Finished. Winner determination is a separate,
// explicit step (DecideWinner); Finish never infers one.
func (g *Game) Finish(now time.Time) error {
	if g.Status != StatusActive {
		return ErrGameNotActive
	}
	g.Status = StatusFinished
	g.FinishedAt = &now
	return nil
}

// DecideWinner picks the winning player identity by highest score, ties
// going to the earlier join (lower player index). Returns "" when no
// players are given. The engine never calls this on its own; the command
// layer applies it at game end.
func DecideWinner(players []PlayerState) string {
	winner := ""
	var bestScore uint64
	bestIndex := -1
	for _, p := range players {
		if bestIndex == -1 || p.Score > bestScore ||
			(p.Score == bestScore && p.PlayerIndex < bestIndex) {
			winner = p.Player
			bestScore = p.Score
			bestIndex = p.PlayerIndex
		}
	}
	return winner
}

// Clone returns a deep copy of the game. Grid tiles are values, so the
// array copy is already deep; mutations to the clone never reach the
// original. Used for frozen snapshot export.
func (g *Game) Clone() *Game {
	c := *g
	if g.StartedAt != nil {
		t := *g.StartedAt
		c.StartedAt = &t
	}
	if g.FinishedAt != nil {
		t := *g.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
