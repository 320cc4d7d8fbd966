package games

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-engine/internal/fair"
)

var abcSnap = fair.Snapshot{ServerSeed: "abc", ClientSeed: "xyz", Nonce: 0}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// The abc/xyz/0 roll is floor(f*10001)/100 = 81.04 with f derived from the
// first four stream bytes (0xcf719a09).
func TestDiceKnownRoll(t *testing.T) {
	out, err := computeDice(decimal.NewFromInt(10), abcSnap,
		json.RawMessage(`{"target":"50","condition":"over"}`), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, mustDecimal("81.04").Equal(out.Payload["roll"].(decimal.Decimal)))
	assert.True(t, out.Won)
}

// Over 50 at 1% edge pays (99/50)*0.99 = 1.9602: stake 10 returns 19.60 for
// a profit of 9.60.
func TestDiceOverFiftyPayout(t *testing.T) {
	out, err := computeDice(decimal.NewFromInt(10), abcSnap,
		json.RawMessage(`{"target":"50","condition":"over"}`), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, mustDecimal("1.9602").Equal(out.Multiplier), "multiplier %s", out.Multiplier)
	assert.True(t, mustDecimal("19.60").Equal(out.Payout), "payout %s", out.Payout)
	assert.True(t, mustDecimal("9.60").Equal(out.Profit), "profit %s", out.Profit)
}

func TestDiceUnderLoses(t *testing.T) {
	out, err := computeDice(decimal.NewFromInt(10), abcSnap,
		json.RawMessage(`{"target":"50","condition":"under"}`), DefaultConfig())
	require.NoError(t, err)

	assert.False(t, out.Won)
	assert.True(t, out.Payout.IsZero())
	assert.True(t, mustDecimal("-10").Equal(out.Profit))
}

func TestDiceRepeatedComputationIsStable(t *testing.T) {
	params := json.RawMessage(`{"target":"81.04","condition":"under"}`)
	first, err := computeDice(decimal.NewFromInt(5), abcSnap, params, DefaultConfig())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := computeDice(decimal.NewFromInt(5), abcSnap, params, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, first.Won, again.Won)
		assert.True(t, first.Multiplier.Equal(again.Multiplier))
	}
}

func TestDiceValidation(t *testing.T) {
	cases := []struct {
		name   string
		params string
		ok     bool
	}{
		{"valid over", `{"target":"50","condition":"over"}`, true},
		{"valid under", `{"target":"0.01","condition":"under"}`, true},
		{"bad condition", `{"target":"50","condition":"above"}`, false},
		{"target too low", `{"target":"0","condition":"under"}`, false},
		{"target too high", `{"target":"100","condition":"over"}`, false},
		{"too many decimals", `{"target":"50.001","condition":"over"}`, false},
		{"minimum chance over", `{"target":"99.99","condition":"over"}`, true},
		{"not json", `"50"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateDice(json.RawMessage(tc.params))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidParams)
			}
		})
	}
}
