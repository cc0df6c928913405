package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of an ID token without verifying the
// signature. Only suitable for computing TTLs of tokens already trusted.
func TokenExpiry(idToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, jwt.ErrTokenRequiredClaimMissing
	}
	return exp.Time.UTC(), nil
}

// ExpiresAt prefers the token's exp claim and falls back to now+expiresIn seconds.
func ExpiresAt(idToken string, expiresIn int64) time.Time {
	if exp, err := TokenExpiry(idToken); err == nil {
		return exp
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return time.Now().UTC().Add(time.Duration(expiresIn) * time.Second)
}
