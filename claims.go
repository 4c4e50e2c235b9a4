package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload carried by access and refresh tokens. The
// jti lives in RegisteredClaims.ID and doubles as the revocation key.
// UserUID is always the authenticated user's stored id.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	UserUID string `json:"user_uid,omitempty"`
	Refresh bool   `json:"refresh"`
}

// JTI returns the unique token identifier.
func (c *TokenClaims) JTI() string {
	return c.RegisteredClaims.ID
}

// UserUUID parses the user id claim.
func (c *TokenClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserUID)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued-at time
func (c *TokenClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TimeToExpiry is the remaining validity, used to bound revocation TTLs.
func (c *TokenClaims) TimeToExpiry() time.Duration {
	exp := c.Expires()
	if exp.IsZero() {
		return 0
	}
	return time.Until(exp)
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
