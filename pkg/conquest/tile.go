package conquest

// Resource identifies a harvestable resource kind.
type Resource string

const (
	Gold Resource = "gold"
	Wood Resource = "wood"
)

// Tile is one cell of the grid. Exactly three variants exist: Empty,
// Owned, and Deposit. Code inspecting a tile must type-switch over all
// three; there is no shared field set across variants.
type Tile interface {
	isTile()
}

// Empty is an unclaimed tile.
type Empty struct{}

// Owned is a tile controlled by a player. Units is the tile's local
// garrison, distinct from the owner's total unit ledger.
type Owned struct {
	Player     int
	Units      int
	HasDefense bool
	HasMine    bool
}

// Deposit is a harvestable resource tile. The amount is paid out in full
// to the first capturing player, after which the tile becomes Owned with
// a mine marker and the deposit ceases to exist.
type Deposit struct {
	Resource Resource
	Amount   uint64
}

func (Empty) isTile()   {}
func (Owned) isTile()   {}
func (Deposit) isTile() {}
