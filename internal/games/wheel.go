package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Wheel spins a 10-segment wheel and pays the multiplier printed on the
// landed segment. The payout tables carry the house edge; the engine applies
// no further discount.
//
// Draws: exactly one float, mapped to a segment index in [0, 9].

type wheelParams struct {
	Risk string `json:"risk"` // "low", "medium" or "high"
}

// Segment tables, indexed by the drawn position. Expected return on each
// table is 96%.
var wheelTables = map[string][]decimal.Decimal{
	"low": {
		decimal.New(12, -1), decimal.New(12, -1), decimal.Zero, decimal.New(12, -1), decimal.Zero,
		decimal.New(12, -1), decimal.Zero, decimal.New(12, -1), decimal.Zero, decimal.New(36, -1),
	},
	"medium": {
		decimal.Zero, decimal.New(19, -1), decimal.Zero, decimal.New(15, -1), decimal.Zero,
		decimal.New(20, -1), decimal.Zero, decimal.New(15, -1), decimal.Zero, decimal.New(27, -1),
	},
	"high": {
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero,
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.New(96, -1),
	},
}

func validateWheel(raw json.RawMessage) error {
	var p wheelParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if _, ok := wheelTables[p.Risk]; !ok {
		return fmt.Errorf("%w: risk must be low, medium or high", ErrInvalidParams)
	}
	return nil
}

func computeWheel(amount decimal.Decimal, snap fair.Snapshot, raw json.RawMessage, cfg Config) (*Outcome, error) {
	var p wheelParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	table := wheelTables[p.Risk]
	segment := snap.Stream().Int(0, len(table)-1)
	multiplier := table[segment]

	payload := map[string]interface{}{
		"segment":    segment,
		"risk":       p.Risk,
		"multiplier": multiplier,
	}

	if multiplier.IsZero() {
		return lose(amount, payload), nil
	}
	return win(amount, multiplier, payload), nil
}
