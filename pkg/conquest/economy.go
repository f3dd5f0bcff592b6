package conquest

// BuildDefense fortifies one of the player's tiles for DefenseCostWood
// wood. A tile holds at most one defense; it adds +2 to the garrison
// when the tile is attacked.
func (g *Game) BuildDefense(ps *PlayerState, x, y int) error {
	if g.Status != StatusActive {
		return ErrGameNotActive
	}
	if !ps.IsAlive {
		return ErrPlayerEliminated
	}

	t, err := g.Grid.At(x, y)
	if err != nil {
		return err
	}
	o, ok := t.(Owned)
	if !ok || o.Player != ps.PlayerIndex {
		return ErrNotYourTile
	}
	if o.HasDefense {
		return ErrAlreadyHasDefense
	}
	if ps.Wood < DefenseCostWood {
		return ErrNotEnoughResources
	}

	o.HasDefense = true
	g.Grid.set(x, y, o)
	ps.Wood -= DefenseCostWood
	ps.Score += scoreDefense
	return nil
}

// TrainUnits recruits count units onto one of the player's tiles for
// UnitCostGold gold apiece. The player's unit ledger is capped at
// MaxUnits.
func (g *Game) TrainUnits(ps *PlayerState, x, y, count int) error {
	if g.Status != StatusActive {
		return ErrGameNotActive
	}
	if !ps.IsAlive {
		return ErrPlayerEliminated
	}
	if count <= 0 {
		return ErrNotEnoughUnits
	}

	t, err := g.Grid.At(x, y)
	if err != nil {
		return err
	}

	cost := uint64(count) * UnitCostGold
	if ps.Gold < cost {
		return ErrNotEnoughResources
	}
	if ps.Units+count > MaxUnits {
		return ErrMaxUnitsReached
	}

	o, ok := t.(Owned)
	if !ok || o.Player != ps.PlayerIndex {
		return ErrNotYourTile
	}

	o.Units += count
	g.Grid.set(x, y, o)
	ps.Gold -= cost
	ps.Units += count
	return nil
}

// CollectYield is one harvest's take, reported for logging and events.
type CollectYield struct {
	Gold uint64 `json:"gold"`
	Wood uint64 `json:"wood"`
}

// CollectResources harvests the player's whole territory in one batch:
// ResourcePerTick gold and wood per owned tile, with double ResourcePerTick
// bonus gold per mine. Tiles are read, never mutated, and there is no
// cooldown between harvests.
func (g *Game) CollectResources(ps *PlayerState) (CollectYield, error) {
	if g.Status != StatusActive {
		return CollectYield{}, ErrGameNotActive
	}
	if !ps.IsAlive {
		return CollectYield{}, ErrPlayerEliminated
	}

	var y CollectYield
	for row := range g.Grid {
		for col := range g.Grid[row] {
			o, ok := g.Grid[row][col].(Owned)
			if !ok || o.Player != ps.PlayerIndex {
				continue
			}
			y.Gold += ResourcePerTick
			y.Wood += ResourcePerTick
			if o.HasMine {
				y.Gold += ResourcePerTick * 2
			}
		}
	}

	ps.Gold += y.Gold
	ps.Wood += y.Wood
	return y, nil
}

// SetStrategy overwrites the player's advertised strategy tag. The tag is
// informational; no rule reads it.
func (ps *PlayerState) SetStrategy(mode StrategyMode) {
	ps.Strategy = mode
}
