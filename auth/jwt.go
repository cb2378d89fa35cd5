package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry returns the exp claim of a JWT access token. The signature is
// not verified; the server does that. Opaque tokens (anything that is not
// three dot-separated segments) have no known expiry and return the zero time.
func TokenExpiry(token string) (time.Time, error) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// CheckToken fails with ErrTokenExpired when token expires within leeway of
// now. Tokens without an expiry always pass.
func CheckToken(token string, now time.Time, leeway time.Duration) error {
	exp, err := TokenExpiry(token)
	if err != nil {
		return err
	}
	if !exp.IsZero() && !now.Add(leeway).Before(exp) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.UTC().Format(time.RFC3339))
	}
	return nil
}
