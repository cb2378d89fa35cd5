// Package auth supplies the credentials the wire client attaches to every
// request.
//
// Credentials write request headers: Basic sends the username and password
// as HTTP basic authentication, Bearer sends an access token obtained from a
// TokenSource. Access tokens that are JWTs are checked for expiry before use,
// so an expired token fails locally with ErrTokenExpired instead of costing a
// round trip. CachingTokenSource keeps a fetched token until shortly before it
// expires and collapses concurrent refreshes into one call.
package auth
