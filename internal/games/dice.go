package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Dice rolls a percentile in [0.00, 100.00] with 2 decimals and pays the
// conventional 99/chance odds, discounted once by the house edge.
//
// Draws: exactly one float (4 bytes). The roll is floor(f*10001)/100.

type diceParams struct {
	Target    decimal.Decimal `json:"target"`
	Condition string          `json:"condition"` // "over" or "under"
}

var (
	diceMinTarget = decimal.New(1, -2)    // 0.01
	diceMaxTarget = decimal.New(9999, -2) // 99.99
	diceOdds      = decimal.NewFromInt(99)
)

func (p diceParams) chance() decimal.Decimal {
	if p.Condition == "over" {
		return decimal.NewFromInt(100).Sub(p.Target)
	}
	return p.Target
}

func validateDice(raw json.RawMessage) error {
	var p diceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Condition != "over" && p.Condition != "under" {
		return fmt.Errorf("%w: condition must be over or under", ErrInvalidParams)
	}
	if p.Target.LessThan(diceMinTarget) || p.Target.GreaterThan(diceMaxTarget) {
		return fmt.Errorf("%w: target out of range", ErrInvalidParams)
	}
	if p.Target.Exponent() < -2 {
		return fmt.Errorf("%w: target precision exceeds 2 decimals", ErrInvalidParams)
	}
	if p.chance().LessThan(diceMinTarget) {
		return fmt.Errorf("%w: win chance too small", ErrInvalidParams)
	}
	return nil
}

func computeDice(amount decimal.Decimal, snap fair.Snapshot, raw json.RawMessage, cfg Config) (*Outcome, error) {
	var p diceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	f := snap.Stream().Float()
	roll := decimal.New(int64(f*10001), -2) // floor(f*10001)/100

	payload := map[string]interface{}{
		"roll":      roll,
		"target":    p.Target,
		"condition": p.Condition,
	}

	var won bool
	if p.Condition == "over" {
		won = roll.GreaterThan(p.Target)
	} else {
		won = roll.LessThan(p.Target)
	}
	if !won {
		return lose(amount, payload), nil
	}

	raw99 := diceOdds.Div(p.chance())
	multiplier := raw99.Mul(decimal.NewFromInt(1).Sub(cfg.HouseEdge)).RoundDown(4)
	return win(amount, multiplier, payload), nil
}
