package auth

import "errors"

// Sentinel errors for credential handling.
var (
	ErrMissingCredentials     = errors.New("auth: missing credentials")
	ErrConflictingCredentials = errors.New("auth: both password and access token configured")
	ErrTokenExpired           = errors.New("auth: token expired")
	ErrTokenMalformed         = errors.New("auth: token malformed")
)
