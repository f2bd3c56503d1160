package middleware

// identity.go holds the helpers that tell requests apart. Rate limiting
// keys on the session when the request names one and on "anon" otherwise.

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/labstack/echo/v4"
)

// SessionID returns the session id injected by SessionAuth, or "" when
// the request was not authenticated with a handle.
func SessionID(c echo.Context) string {
	if v, ok := c.Get(CtxSessionID).(string); ok {
		return v
	}
	return ""
}

// sessionKey identifies the caller's session. Global middleware runs
// before SessionAuth, so an unverified handle is reduced to a hash of the
// raw token.
func sessionKey(c echo.Context) string {
	if id := SessionID(c); id != "" {
		return id
	}
	if raw := c.Param("token"); raw != "" {
		sum := sha1.Sum([]byte(raw))
		return hex.EncodeToString(sum[:8])
	}
	return "anon"
}
