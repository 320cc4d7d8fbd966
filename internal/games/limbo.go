package games

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Limbo derives a crash point from a single draw; the player wins when the
// crash point reaches their target multiplier and is paid the target. The
// house edge is baked into the crash-point distribution, so the payout
// multiplier itself is undiscounted.
//
// Draws: exactly 4 bytes, big-endian, as an unsigned 32-bit integer u.
// crashPoint = floor(2^32 * (1 - edge) / (u + 1) * 100) / 100, min 1.00.

type limboParams struct {
	Target decimal.Decimal `json:"target"`
}

var (
	limboMinTarget = decimal.New(101, -2)    // 1.01
	limboMaxTarget = decimal.NewFromInt(1e6) // 1,000,000.00
	limboScale     = decimal.NewFromInt(1 << 32)
)

func validateLimbo(raw json.RawMessage) error {
	var p limboParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Target.LessThan(limboMinTarget) || p.Target.GreaterThan(limboMaxTarget) {
		return fmt.Errorf("%w: target out of range", ErrInvalidParams)
	}
	if p.Target.Exponent() < -2 {
		return fmt.Errorf("%w: target precision exceeds 2 decimals", ErrInvalidParams)
	}
	return nil
}

func limboCrashPoint(snap fair.Snapshot, edge decimal.Decimal) decimal.Decimal {
	u := binary.BigEndian.Uint32(snap.Stream().Bytes(4))
	crash := limboScale.
		Mul(decimal.NewFromInt(1).Sub(edge)).
		Div(decimal.NewFromInt(int64(u) + 1)).
		RoundDown(2)
	if crash.LessThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return crash
}

func computeLimbo(amount decimal.Decimal, snap fair.Snapshot, raw json.RawMessage, cfg Config) (*Outcome, error) {
	var p limboParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	crash := limboCrashPoint(snap, cfg.HouseEdge)
	payload := map[string]interface{}{
		"crash_point": crash,
		"target":      p.Target,
	}

	if crash.LessThan(p.Target) {
		return lose(amount, payload), nil
	}
	return win(amount, p.Target, payload), nil
}
