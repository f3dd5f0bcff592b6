package conquest

// MoveOutcome describes what a successful move did, for event broadcasting
// and logging. Zero value means a plain reinforce.
type MoveOutcome struct {
	Expanded bool // claimed an empty tile
	Fought   bool // combat against another player's tile
	Won      bool // combat was fought and the attacker took the tile
	Captured bool // harvested a resource deposit
	Loot     uint64
	LootKind Resource
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// MoveUnits moves count units from (fromX, fromY) to the adjacent tile
// (toX, toY). Adjacency is Chebyshev distance exactly 1, diagonals
// included. The source must be the mover's tile with at least count
// units; moving the whole garrison is allowed and leaves an owned tile
// with zero units.
//
// Destination resolution: empty tiles are claimed, own tiles reinforced,
// enemy tiles fought over, and deposits harvested in full. Combat pits
// the moved units against the defending garrison plus 2 if the tile has
// a defense; ties go to the defender and the surviving side keeps at
// least one unit. A conquered tile loses its defense but keeps its mine.
//
// Every successful move advances the game turn by one.
func (g *Game) MoveUnits(ps *PlayerState, fromX, fromY, toX, toY, count int) (*MoveOutcome, error) {
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if !ps.IsAlive {
		return nil, ErrPlayerEliminated
	}

	src, err := g.Grid.At(fromX, fromY)
	if err != nil {
		return nil, err
	}
	dst, err := g.Grid.At(toX, toY)
	if err != nil {
		return nil, err
	}

	dx := abs(fromX - toX)
	dy := abs(fromY - toY)
	if dx > 1 || dy > 1 || dx+dy == 0 {
		return nil, ErrNotAdjacent
	}

	from, ok := src.(Owned)
	if !ok || from.Player != ps.PlayerIndex {
		return nil, ErrNotYourTile
	}
	if count <= 0 || count > from.Units {
		return nil, ErrNotEnoughUnits
	}

	from.Units -= count
	g.Grid.set(fromX, fromY, from)

	out := &MoveOutcome{}
	switch t := dst.(type) {
	case Empty:
		g.Grid.set(toX, toY, Owned{Player: ps.PlayerIndex, Units: count})
		ps.Score += scoreExpand
		out.Expanded = true
	case Owned:
		if t.Player == ps.PlayerIndex {
			t.Units += count
			g.Grid.set(toX, toY, t)
			break
		}
		out.Fought = true
		atk := count
		def := t.Units
		if t.HasDefense {
			def += 2
		}
		if atk > def {
			remaining := atk - def
			if remaining < 1 {
				remaining = 1
			}
			g.Grid.set(toX, toY, Owned{
				Player:  ps.PlayerIndex,
				Units:   remaining,
				HasMine: t.HasMine,
			})
			ps.Score += scoreConquer
			out.Won = true
		} else {
			remaining := def - atk
			if remaining < 1 {
				remaining = 1
			}
			t.Units = remaining
			g.Grid.set(toX, toY, t)
		}
	case Deposit:
		switch t.Resource {
		case Gold:
			ps.Gold += t.Amount
		case Wood:
			ps.Wood += t.Amount
		}
		g.Grid.set(toX, toY, Owned{
			Player:  ps.PlayerIndex,
			Units:   count,
			HasMine: true,
		})
		ps.Score += scoreCapture
		out.Captured = true
		out.Loot = t.Amount
		out.LootKind = t.Resource
	}

	g.Turn++
	return out, nil
}
