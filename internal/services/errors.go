package services

import "errors"

var (
	// Validation-class failures: synchronous, pre-mutation, no retry.
	ErrInvalidAmount     = errors.New("bet amount must be positive")
	ErrAmountOutOfBounds = errors.New("bet amount outside currency limits")
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrSeedPairLocked: the active pair is locked by an in-progress game
	// session; reservation and rotation are rejected until it clears.
	ErrSeedPairLocked = errors.New("seed pair locked by active game session")

	// ErrConflict: transactional contention survived the bounded retries.
	// Transient and retry-safe for the caller.
	ErrConflict = errors.New("settlement conflict, retry")

	ErrNoActiveSession = errors.New("no active autobet session")
)
