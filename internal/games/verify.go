package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"casino-engine/internal/fair"
)

// Verify independently reproduces a bet's outcome from the revealed seed
// material. It runs the exact calculator the live engine ran, so any
// divergence between a stored bet and this function is a correctness defect.
// The outcome is computed against a unit stake; multiplier, won flag and
// payload are the verifiable facts.
func (r *Registry) Verify(serverSeed, clientSeed string, nonce uint64, gameID string, params json.RawMessage) (*Outcome, error) {
	if err := r.ValidateParams(gameID, params); err != nil {
		return nil, err
	}
	snap := fair.Snapshot{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	return r.Compute(gameID, decimal.NewFromInt(1), snap, params)
}
