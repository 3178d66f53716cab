package httpapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the fields of a login token that are useful on the
// client side. The signature is not verified: the server remains the
// authority on whether the token is valid.
type TokenClaims struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

func ParseTokenClaims(token string) TokenClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenClaims{}
	}

	result := TokenClaims{
		UserID: stringClaim(claims, "id"),
		Email:  stringClaim(claims, "email"),
		Role:   stringClaim(claims, "role"),
	}
	if result.UserID == "" {
		if subject, err := claims.GetSubject(); err == nil {
			result.UserID = subject
		}
	}
	if expiresAt, err := claims.GetExpirationTime(); err == nil && expiresAt != nil {
		result.ExpiresAt = expiresAt.UTC()
	}

	return result
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, ok := claims[key].(string)
	if !ok {
		return ""
	}
	return value
}
