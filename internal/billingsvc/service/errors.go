package service

import "errors"

// Business outcomes (declined, denied, not found) are returned as values;
// these errors separate client mistakes from infrastructure failures so the
// boundary layer can map them without inspecting error text.
var (
	// ErrInvalidInput means the caller did not supply a user or game id.
	ErrInvalidInput = errors.New("user and game identifiers are required")

	// ErrNotFound means the game id has no catalog entry. Distinct from
	// ACCESS_DENIED: the asset does not exist rather than isn't purchased.
	ErrNotFound = errors.New("game does not exist")

	// ErrGameNotReady means the user paid but the game has no deployed
	// asset yet. Surfaced so the caller sees the inconsistency instead of
	// a blank URL.
	ErrGameNotReady = errors.New("game has no deployed asset yet")

	// ErrPaymentSystem means the verifier could not be reached. Never a
	// decision: the charge may or may not have happened.
	ErrPaymentSystem = errors.New("payment system unavailable")

	// ErrStorage means a ledger read or write failed after retries.
	ErrStorage = errors.New("ledger storage failure")

	// ErrInconsistent means a verified payment could not be durably
	// recorded. Requires manual reconciliation; returning GRANTED here
	// would be unverifiable later, DENIED would contradict a real charge.
	ErrInconsistent = errors.New("verified payment could not be recorded")
)
