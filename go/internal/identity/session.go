package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcdev12/slotsync/go/internal/models"
)

// DefaultSessionTTL applies when the session token carries no expiry.
const DefaultSessionTTL = 15 * time.Minute

// NewAdminSession wraps a server-issued token. The token stays opaque to
// the client; when it happens to be a JWT its exp claim sets the local
// expiry, otherwise DefaultSessionTTL does. The signature is never checked
// here; the server does that on every call.
func NewAdminSession(token, username string, now time.Time) models.AdminSession {
	exp := now.Add(DefaultSessionTTL)

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return models.AdminSession{Token: token, Username: username, ExpiresAt: exp}
}
