package games

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryValidateParams(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	assert.NoError(t, r.ValidateParams("dice", json.RawMessage(`{"target":"50","condition":"over"}`)))
	assert.ErrorIs(t, r.ValidateParams("roulette", nil), ErrUnknownGame)
	assert.ErrorIs(t, r.ValidateParams("blackjack", nil), ErrInteractiveGame)
	assert.ErrorIs(t, r.ValidateParams("hilo", nil), ErrInteractiveGame)
	assert.ErrorIs(t, r.ValidateParams("dice", json.RawMessage(`{"target":"200","condition":"over"}`)), ErrInvalidParams)
}

func TestRegistryComputeRejectsInteractive(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	_, err := r.Compute("blackjack", decimal.NewFromInt(1), abcSnap, nil)
	assert.ErrorIs(t, err, ErrInteractiveGame)

	_, err = r.Compute("poker", decimal.NewFromInt(1), abcSnap, nil)
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestRegistryEdgePolicies(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	want := map[string]EdgePolicy{
		"dice":  EdgeOnMultiplier,
		"mines": EdgeOnMultiplier,
		"limbo": EdgeInTable,
		"wheel": EdgeInTable,
		"keno":  EdgeInTable,
	}
	for id, policy := range want {
		g, ok := r.Get(id)
		require.True(t, ok, id)
		assert.Equal(t, policy, g.EdgePolicy, id)
		assert.False(t, g.Interactive, id)
	}
}

func TestVerifyMatchesCompute(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	cases := []struct {
		game   string
		params string
	}{
		{"dice", `{"target":"50","condition":"over"}`},
		{"limbo", `{"target":"1.10"}`},
		{"wheel", `{"risk":"medium"}`},
		{"keno", `{"picks":[27,33]}`},
		{"mines", `{"mines":5,"reveals":[0]}`},
	}
	for _, tc := range cases {
		t.Run(tc.game, func(t *testing.T) {
			live, err := r.Compute(tc.game, decimal.NewFromInt(1), abcSnap, json.RawMessage(tc.params))
			require.NoError(t, err)

			replay, err := r.Verify(abcSnap.ServerSeed, abcSnap.ClientSeed, abcSnap.Nonce, tc.game, json.RawMessage(tc.params))
			require.NoError(t, err)

			assert.Equal(t, live.Won, replay.Won)
			assert.True(t, live.Multiplier.Equal(replay.Multiplier))
			assert.Equal(t, live.Payload, replay.Payload)
		})
	}
}

func TestVerifyKnownDiceRoll(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	out, err := r.Verify("abc", "xyz", 0, "dice", json.RawMessage(`{"target":"50","condition":"over"}`))
	require.NoError(t, err)

	assert.True(t, out.Won)
	roll, ok := out.Payload["roll"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, mustDecimal("81.04").Equal(roll))
}

func TestVerifyRejectsBadParams(t *testing.T) {
	r := NewRegistry(DefaultConfig())

	_, err := r.Verify("abc", "xyz", 0, "mines", json.RawMessage(`{"mines":0,"reveals":[0]}`))
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestWinFloorsPayout(t *testing.T) {
	// 10.01 * 1.2375 = 12.387375, floored to 12.38.
	out := win(mustDecimal("10.01"), mustDecimal("1.2375"), nil)
	assert.True(t, mustDecimal("12.38").Equal(out.Payout))
	assert.True(t, mustDecimal("2.37").Equal(out.Profit))
}
