package utils // package utils provides helpers for signing and reading session handles

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned for handles that are malformed, expired or
// signed with another secret.
var ErrInvalidToken = errors.New("invalid session token")

// SessionToken is a signed handle for a server-side view session along
// with its expiry. The Token string is what clients put in the URL.
type SessionToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// SessionClaims are the claims carried by a session handle: the standard
// subject (session id), expiry and issue time plus the session kind.
type SessionClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 JWT naming a session. The kind
// ("form" or "list") is checked again when the handle comes back so a form
// handle cannot be used on list routes.
func NewSessionToken(secret, sessionID, kind string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies a handle and returns its claims. Only HMAC
// signatures are accepted.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}
