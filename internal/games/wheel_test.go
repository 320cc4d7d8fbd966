package games

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWheelKnownSegmentLoses(t *testing.T) {
	// abc/xyz/0 lands segment 8, a zero multiplier on every table.
	for _, risk := range []string{"low", "medium", "high"} {
		out, err := computeWheel(decimal.NewFromInt(10), abcSnap,
			json.RawMessage(`{"risk":"`+risk+`"}`), DefaultConfig())
		require.NoError(t, err)

		assert.False(t, out.Won, "risk %s", risk)
		assert.EqualValues(t, 8, out.Payload["segment"])
		assert.True(t, mustDecimal("-10").Equal(out.Profit))
	}
}

func TestWheelHighRiskJackpot(t *testing.T) {
	snap := abcSnap
	snap.Nonce = 17 // lands segment 9

	out, err := computeWheel(decimal.NewFromInt(10), snap,
		json.RawMessage(`{"risk":"high"}`), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, out.Won)
	assert.True(t, mustDecimal("9.6").Equal(out.Multiplier))
	assert.True(t, mustDecimal("96.00").Equal(out.Payout))
	assert.True(t, mustDecimal("86.00").Equal(out.Profit))
}

func TestWheelMediumRiskWin(t *testing.T) {
	snap := abcSnap
	snap.Nonce = 1 // lands segment 3

	out, err := computeWheel(decimal.NewFromInt(10), snap,
		json.RawMessage(`{"risk":"medium"}`), DefaultConfig())
	require.NoError(t, err)

	assert.True(t, out.Won)
	assert.True(t, mustDecimal("1.5").Equal(out.Multiplier))
	assert.True(t, mustDecimal("15.00").Equal(out.Payout))
}

func TestWheelTableReturns(t *testing.T) {
	// Every table pays out 96% over a full sweep of the 10 segments.
	want := mustDecimal("9.6")
	for risk, table := range wheelTables {
		sum := decimal.Zero
		for _, m := range table {
			sum = sum.Add(m)
		}
		assert.True(t, want.Equal(sum), "risk %s sums to %s", risk, sum)
	}
}

func TestWheelValidation(t *testing.T) {
	assert.NoError(t, validateWheel(json.RawMessage(`{"risk":"low"}`)))
	assert.ErrorIs(t, validateWheel(json.RawMessage(`{"risk":"extreme"}`)), ErrInvalidParams)
	assert.ErrorIs(t, validateWheel(json.RawMessage(`{}`)), ErrInvalidParams)
}
