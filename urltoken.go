package identity

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// Salts namespace the derived signing keys so a token issued for one
// purpose never validates for another, or against access tokens.
const (
	SaltEmailVerification = "email-verification"
	SaltPasswordReset     = "password-reset"
)

// DefaultURLTokenTTL bounds verification links that carry no explicit ttl.
const DefaultURLTokenTTL = 24 * time.Hour

// URLTokenCodec signs short-lived, URL-transport-safe tokens for email
// verification and password-reset links. The compact serialization is
// base64url, so tokens can be embedded in a path segment without extra
// percent-encoding.
type URLTokenCodec struct {
	key []byte
	ttl time.Duration
}

type urlTokenClaims struct {
	jwt.RegisteredClaims
	Data map[string]string `json:"data,omitempty"`
}

// NewURLTokenCodec derives a signing key from the shared secret and the
// purpose salt. Tokens issued by codecs with different salts are mutually
// invalid.
func NewURLTokenCodec(secret, salt string, ttl time.Duration) *URLTokenCodec {
	if ttl <= 0 {
		ttl = DefaultURLTokenTTL
	}

	sum := sha256.Sum256([]byte(secret + "/" + salt))

	return &URLTokenCodec{
		key: sum[:],
		ttl: ttl,
	}
}

// Issue signs the payload with the codec's ttl.
func (c *URLTokenCodec) Issue(payload map[string]string) (string, error) {
	now := time.Now()
	claims := &urlTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Data: payload,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign url token")
	}

	return signed, nil
}

// Decode verifies the token and returns its payload. Expired tokens fail
// with ErrTokenExpired, everything else undecodable with ErrTokenMalformed.
func (c *URLTokenCodec) Decode(raw string) (map[string]string, error) {
	token, err := jwt.ParseWithClaims(raw, &urlTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*urlTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Data == nil {
		return map[string]string{}, nil
	}

	return claims.Data, nil
}
