package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Mines hides N mines on a 25-cell grid; the player pre-selects the cells to
// reveal and wins when none of them holds a mine. The multiplier is the fair
// product of the survival odds per reveal, discounted once by the house edge.
//
// Draws: one full shuffle of the 25-cell grid (24 floats); the mines are the
// first N positions of the permutation.

const minesGridSize = 25

type minesParams struct {
	Mines   int   `json:"mines"`
	Reveals []int `json:"reveals"`
}

func validateMines(raw json.RawMessage) error {
	var p minesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Mines < 1 || p.Mines >= minesGridSize {
		return fmt.Errorf("%w: mine count must be between 1 and %d", ErrInvalidParams, minesGridSize-1)
	}
	if len(p.Reveals) < 1 || len(p.Reveals) > minesGridSize-p.Mines {
		return fmt.Errorf("%w: reveal between 1 and %d cells", ErrInvalidParams, minesGridSize-p.Mines)
	}
	seen := make(map[int]bool, len(p.Reveals))
	for _, c := range p.Reveals {
		if c < 0 || c >= minesGridSize {
			return fmt.Errorf("%w: cell %d outside grid", ErrInvalidParams, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate cell %d", ErrInvalidParams, c)
		}
		seen[c] = true
	}
	return nil
}

// minesMultiplier is the fair odds of surviving `reveals` picks on a grid
// with `mines` mines, times (1 - edge), truncated to 4 decimals.
func minesMultiplier(mines, reveals int, edge decimal.Decimal) decimal.Decimal {
	m := decimal.NewFromInt(1)
	for k := 0; k < reveals; k++ {
		m = m.Mul(decimal.NewFromInt(int64(minesGridSize - k))).
			Div(decimal.NewFromInt(int64(minesGridSize - mines - k)))
	}
	return m.Mul(decimal.NewFromInt(1).Sub(edge)).RoundDown(4)
}

func computeMines(amount decimal.Decimal, snap fair.Snapshot, raw json.RawMessage, cfg Config) (*Outcome, error) {
	var p minesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	minePositions := snap.Stream().Shuffle(minesGridSize)[:p.Mines]
	mined := make(map[int]bool, p.Mines)
	for _, c := range minePositions {
		mined[c] = true
	}

	payload := map[string]interface{}{
		"mine_positions": minePositions,
		"reveals":        p.Reveals,
		"mines":          p.Mines,
	}

	for _, c := range p.Reveals {
		if mined[c] {
			return lose(amount, payload), nil
		}
	}
	return win(amount, minesMultiplier(p.Mines, len(p.Reveals), cfg.HouseEdge), payload), nil
}
