package engine

import "errors"

// Error taxonomy surfaced to callers. All are returned synchronously from the
// triggering operation; nothing is retried internally.
var (
	// ErrAlreadyPending is returned when a player already has an
	// outstanding randomness request.
	ErrAlreadyPending = errors.New("randomness request already pending")

	// ErrInsufficientFunds is returned by StartGame when the attached value
	// does not cover bet plus provider fee, or when the player's chip
	// balance cannot cover the bet.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientFee is returned by DrawCard when the attached value
	// does not cover the provider fee.
	ErrInsufficientFee = errors.New("insufficient fee")

	// ErrGameStillActive is returned when an operation requires the hand to
	// be finished but it is still alive.
	ErrGameStillActive = errors.New("game still active")

	// ErrNoActiveGame is returned when an operation requires a live session
	// and there is none.
	ErrNoActiveGame = errors.New("no active game")

	// ErrUnknownRequest is returned when a randomness callback references a
	// sequence number that was never issued or has already been consumed.
	ErrUnknownRequest = errors.New("unknown randomness request")
)
