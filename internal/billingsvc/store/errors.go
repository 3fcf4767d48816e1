package store

import "errors"

var (
	// ErrGameNotFound means the game id has no catalog row.
	ErrGameNotFound = errors.New("game not found")

	// ErrAlreadySettled means a PAID purchase already exists for the
	// (user, game) pair. The unique constraint on purchases raises this
	// on a duplicate insert, so double recording is impossible even
	// across service instances.
	ErrAlreadySettled = errors.New("purchase already settled")
)
