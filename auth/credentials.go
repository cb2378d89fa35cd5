package auth

import (
	"context"
	"net/http"
	"time"
)

// Credentials authenticate an outgoing request by setting headers.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a returned error aborts the request before any I/O.
type Credentials interface {
	Apply(ctx context.Context, h http.Header) error
}

// Basic is HTTP basic authentication.
type Basic struct {
	Username string
	Password string
}

// Apply sets the Authorization header.
func (b Basic) Apply(_ context.Context, h http.Header) error {
	if b.Username == "" {
		return ErrMissingCredentials
	}
	r := http.Request{Header: h}
	r.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Bearer sends an access token from Source.
type Bearer struct {
	Source TokenSource
}

// Apply fetches a token, rejects it if it is an expired JWT, and sets the
// Authorization header.
func (b Bearer) Apply(ctx context.Context, h http.Header) error {
	if b.Source == nil {
		return ErrMissingCredentials
	}
	token, err := b.Source.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrMissingCredentials
	}
	if err := CheckToken(token, time.Now(), 0); err != nil {
		return err
	}
	h.Set("Authorization", "Bearer "+token)
	return nil
}

// None sends no credentials.
type None struct{}

func (None) Apply(context.Context, http.Header) error { return nil }

// Config selects credentials from plain settings.
type Config struct {
	Username    string
	Password    string
	AccessToken string
}

// NewCredentials builds credentials from cfg. An access token wins over an
// empty password; configuring both a password and a token is an error. A
// username alone authenticates with an empty password, and an empty Config
// yields None.
func NewCredentials(cfg Config) (Credentials, error) {
	switch {
	case cfg.AccessToken != "" && cfg.Password != "":
		return nil, ErrConflictingCredentials
	case cfg.AccessToken != "":
		if _, err := TokenExpiry(cfg.AccessToken); err != nil {
			return nil, err
		}
		return Bearer{Source: StaticToken(cfg.AccessToken)}, nil
	case cfg.Username != "":
		return Basic{Username: cfg.Username, Password: cfg.Password}, nil
	case cfg.Password != "":
		return nil, ErrMissingCredentials
	default:
		return None{}, nil
	}
}

var (
	_ Credentials = Basic{}
	_ Credentials = Bearer{}
	_ Credentials = None{}
)
