package common

import (
	"github.com/google/uuid"
)

// GenerateRefNo returns a globally unique reference for bets and ledger
// rows.
func GenerateRefNo() string {
	return uuid.NewString()
}
