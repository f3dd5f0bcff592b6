package conquest

import "errors"

// Rule errors returned by engine operations. Every command validates all
// of its preconditions before touching any state, so a returned error
// guarantees the aggregates are unchanged.
var (
	// Lifecycle
	ErrGameNotInLobby   = errors.New("game is not in lobby state")
	ErrGameFull         = errors.New("game is full")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotCreator       = errors.New("only the creator can do that")
	ErrGameNotActive    = errors.New("game is not active")

	// Validation
	ErrOutOfBounds        = errors.New("coordinates out of bounds")
	ErrNotAdjacent        = errors.New("tiles must be adjacent")
	ErrNotYourTile        = errors.New("this is not your tile")
	ErrNotEnoughUnits     = errors.New("not enough units")
	ErrNotEnoughResources = errors.New("not enough resources")
	ErrAlreadyHasDefense  = errors.New("this tile already has a defense")
	ErrMaxUnitsReached    = errors.New("maximum units reached")

	// Player
	ErrPlayerEliminated = errors.New("player has been eliminated")
)

var errCodes = map[error]string{
	ErrGameNotInLobby:     "game_not_in_lobby",
	ErrGameFull:           "game_full",
	ErrNotEnoughPlayers:   "not_enough_players",
	ErrNotCreator:         "not_creator",
	ErrGameNotActive:      "game_not_active",
	ErrOutOfBounds:        "out_of_bounds",
	ErrNotAdjacent:        "not_adjacent",
	ErrNotYourTile:        "not_your_tile",
	ErrNotEnoughUnits:     "not_enough_units",
	ErrNotEnoughResources: "not_enough_resources",
	ErrAlreadyHasDefense:  "already_has_defense",
	ErrMaxUnitsReached:    "max_units_reached",
	ErrPlayerEliminated:   "player_eliminated",
}

// Code returns the stable machine-readable code for a rule error, or ""
// if the error is not part of the rule taxonomy.
func Code(err error) string {
	for sentinel, code := range errCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}
