package secret

import "errors"

var (
	// ErrMissingEnv is returned when a referenced environment variable is unset.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrUnknownProvider is returned for a secretref naming no registered provider.
	ErrUnknownProvider = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict resolver for empty values.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrInvalidRef is returned for references a provider cannot use.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
