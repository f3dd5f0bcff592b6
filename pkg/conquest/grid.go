package conquest

import (
	"encoding/json"
	"fmt"
)

// GridSize is the fixed board dimension. The board is always 8×8.
const GridSize = 8

// Grid is the fixed-size board. Tiles are stored as values, so copying a
// Grid copies the board; mutations always replace whole tiles and never
// write through a shared reference.
type Grid [GridSize][GridSize]Tile

// NewGrid returns an all-Empty board.
func NewGrid() Grid {
	var g Grid
	for y := range g {
		for x := range g[y] {
			g[y][x] = Empty{}
		}
	}
	return g
}

// At returns the tile at (x, y), x being the column and y the row.
// It is the single bounds-checking accessor; all coordinate reads go
// through it.
func (g *Grid) At(x, y int) (Tile, error) {
	if x < 0 || x >= GridSize || y < 0 || y >= GridSize {
		return nil, ErrOutOfBounds
	}
	return g[y][x], nil
}

// set replaces the tile at (x, y). Callers must have bounds-checked via At.
func (g *Grid) set(x, y int, t Tile) {
	g[y][x] = t
}

// OwnedCount returns the number of tiles held by the given player index.
func (g *Grid) OwnedCount(playerIndex int) int {
	count := 0
	for y := range g {
		for x := range g[y] {
			if o, ok := g[y][x].(Owned); ok && o.Player == playerIndex {
				count++
			}
		}
	}
	return count
}

// GarrisonTotal returns the sum of units stationed on the player's tiles.
// This is the board truth; PlayerState.Units is a separate ledger that can
// drift from it (see PlayerState).
func (g *Grid) GarrisonTotal(playerIndex int) int {
	total := 0
	for y := range g {
		for x := range g[y] {
			if o, ok := g[y][x].(Owned); ok && o.Player == playerIndex {
				total += o.Units
			}
		}
	}
	return total
}

// tileJSON is the wire form of a tile: a tagged union keyed by "kind".
type tileJSON struct {
	Kind       string    `json:"kind"`
	Player     *int      `json:"player,omitempty"`
	Units      *int      `json:"units,omitempty"`
	HasDefense *bool     `json:"has_defense,omitempty"`
	HasMine    *bool     `json:"has_mine,omitempty"`
	Resource   *Resource `json:"resource,omitempty"`
	Amount     *uint64   `json:"amount,omitempty"`
}

// MarshalJSON encodes the grid as an 8×8 array of tagged tile objects.
func (g Grid) MarshalJSON() ([]byte, error) {
	rows := make([][]tileJSON, GridSize)
	for y := range g {
		rows[y] = make([]tileJSON, GridSize)
		for x := range g[y] {
			switch t := g[y][x].(type) {
			case nil, Empty:
				rows[y][x] = tileJSON{Kind: "empty"}
			case Owned:
				rows[y][x] = tileJSON{
					Kind:       "owned",
					Player:     &t.Player,
					Units:      &t.Units,
					HasDefense: &t.HasDefense,
					HasMine:    &t.HasMine,
				}
			case Deposit:
				rows[y][x] = tileJSON{
					Kind:     "resource",
					Resource: &t.Resource,
					Amount:   &t.Amount,
				}
			default:
				return nil, fmt.Errorf("grid: unknown tile variant %T at (%d,%d)", t, x, y)
			}
		}
	}
	return json.Marshal(rows)
}

// UnmarshalJSON decodes the tagged-union wire form back into tiles.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]tileJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if len(rows) != GridSize {
		return fmt.Errorf("grid: expected %d rows, got %d", GridSize, len(rows))
	}
	for y, row := range rows {
		if len(row) != GridSize {
			return fmt.Errorf("grid: row %d has %d tiles, expected %d", y, len(row), GridSize)
		}
		for x, tj := range row {
			switch tj.Kind {
			case "empty":
				g[y][x] = Empty{}
			case "owned":
				if tj.Player == nil || tj.Units == nil {
					return fmt.Errorf("grid: owned tile at (%d,%d) missing fields", x, y)
				}
				o := Owned{Player: *tj.Player, Units: *tj.Units}
				if tj.HasDefense != nil {
					o.HasDefense = *tj.HasDefense
				}
				if tj.HasMine != nil {
					o.HasMine = *tj.HasMine
				}
				g[y][x] = o
			case "resource":
				if tj.Resource == nil || tj.Amount == nil {
					return fmt.Errorf("grid: resource tile at (%d,%d) missing fields", x, y)
				}
				g[y][x] = Deposit{Resource: *tj.Resource, Amount: *tj.Amount}
			default:
				return fmt.Errorf("grid: unknown tile kind %q at (%d,%d)", tj.Kind, x, y)
			}
		}
	}
	return nil
}
