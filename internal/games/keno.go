package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Keno marks 10 of 40 numbers and pays by how many of the player's picks
// were hit. Payout tables are keyed by (picks, matches) with the house edge
// pre-baked.
//
// Draws: one full shuffle of the 40-number board (39 floats); the drawn
// numbers are the first 10 positions of the permutation, in order.

const (
	kenoBoardSize = 40
	kenoDrawCount = 10
	kenoMaxPicks  = 10
)

type kenoParams struct {
	Picks []int `json:"picks"`
}

// kenoTables[n][m] is the multiplier for m matches out of n picks.
var kenoTables = map[int][]decimal.Decimal{
	1:  toDecimals(0, 3.8),
	2:  toDecimals(0, 1.7, 5.3),
	3:  toDecimals(0, 0, 2.8, 50),
	4:  toDecimals(0, 0, 1.7, 10, 100),
	5:  toDecimals(0, 0, 1.4, 4, 14, 390),
	6:  toDecimals(0, 0, 0, 3, 9, 180, 710),
	7:  toDecimals(0, 0, 0, 2, 7, 30, 400, 800),
	8:  toDecimals(0, 0, 0, 2, 4, 11, 67, 400, 900),
	9:  toDecimals(0, 0, 0, 2, 2.5, 5, 15, 100, 500, 1000),
	10: toDecimals(0, 0, 0, 1.6, 2, 4, 7, 26, 100, 500, 1000),
}

func toDecimals(vs ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func validateKeno(raw json.RawMessage) error {
	var p kenoParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if len(p.Picks) < 1 || len(p.Picks) > kenoMaxPicks {
		return fmt.Errorf("%w: pick between 1 and %d numbers", ErrInvalidParams, kenoMaxPicks)
	}
	seen := make(map[int]bool, len(p.Picks))
	for _, n := range p.Picks {
		if n < 0 || n >= kenoBoardSize {
			return fmt.Errorf("%w: pick %d outside board", ErrInvalidParams, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate pick %d", ErrInvalidParams, n)
		}
		seen[n] = true
	}
	return nil
}

func computeKeno(amount decimal.Decimal, snap fair.Snapshot, raw json.RawMessage, cfg Config) (*Outcome, error) {
	var p kenoParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	drawn := snap.Stream().Shuffle(kenoBoardSize)[:kenoDrawCount]
	hit := make(map[int]bool, kenoDrawCount)
	for _, n := range drawn {
		hit[n] = true
	}
	matches := 0
	for _, n := range p.Picks {
		if hit[n] {
			matches++
		}
	}

	multiplier := kenoTables[len(p.Picks)][matches]
	payload := map[string]interface{}{
		"drawn":   drawn,
		"picks":   p.Picks,
		"matches": matches,
	}

	if multiplier.IsZero() {
		return lose(amount, payload), nil
	}
	return win(amount, multiplier, payload), nil
}
