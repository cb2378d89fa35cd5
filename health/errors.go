package health

import "errors"

var (
	// ErrCheckTimeout is the result error of a check that outlived the
	// aggregator timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for an unknown checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
