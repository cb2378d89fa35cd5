package config

import "errors"

var (
	// ErrInvalidURL is returned for URLs that are not http or https.
	ErrInvalidURL = errors.New("config: url must be http or https with a host")

	// ErrInvalidMaxOpen is returned when max_open_connections is below 1.
	ErrInvalidMaxOpen = errors.New("config: max_open_connections must be at least 1")

	// ErrInvalidTimeout is returned for non-positive timeouts.
	ErrInvalidTimeout = errors.New("config: timeouts must be positive")

	// ErrInvalidLogLevel is returned for unknown log levels.
	ErrInvalidLogLevel = errors.New("config: unknown log level")
)
