package sdk

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiresAt returns the expiry encoded in an installation token.
//
// The signature is not verified; expiry is only used for client-side logging
// and proactive refresh hints. The server remains authoritative and responds
// 401 for a token it no longer accepts.
func tokenExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// InstallationTokenExpiresSoon reports whether the stored installation token
// is missing, already expired, or expires within window. A token without a
// parseable expiry is treated as non-expiring.
func (c *Client) InstallationTokenExpiresSoon(window time.Duration) bool {
	token := c.installationToken()
	if token == "" {
		return true
	}
	exp, ok := tokenExpiresAt(token)
	if !ok {
		return false
	}
	return time.Until(exp) <= window
}
