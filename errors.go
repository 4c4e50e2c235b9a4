package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeEmailTaken       = "email_taken"
	TextCodeUsernameTaken    = "username_taken"
	TextCodeUserNotFound     = "user_not_found"
	TextCodeBadCredentials   = "invalid_credentials"
	TextCodeNotVerified      = "account_not_verified"
	TextCodeTokenMissing     = "token_missing"
	TextCodeTokenExpired     = "token_expired"
	TextCodeTokenMalformed   = "token_malformed"
	TextCodeTokenRevoked     = "token_revoked"
	TextCodeWrongVariant     = "wrong_token_variant"
	TextCodeInsufficientRole = "insufficient_role"
)

// ErrEmailTaken is returned when a registration email is already in use.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUsernameTaken is returned when a registration username is already in use.
var ErrUsernameTaken = errors.New("username already registered", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when no user matches the given identifier.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials covers both unknown emails and bad passwords so
// callers cannot distinguish the two.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotVerified is returned on login before email verification.
var ErrAccountNotVerified = errors.New("account not verified", errors.CategoryAuth).
	WithTextCode(TextCodeNotVerified).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMissing is returned when no bearer token is present.
var ErrTokenMissing = errors.New("missing authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for structurally valid tokens past their exp.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable tokens and bad signatures.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked is returned when a token's jti is on the deny-list.
var ErrTokenRevoked = errors.New("token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrWrongTokenVariant is returned when an access token reaches a refresh
// guard or vice versa.
var ErrWrongTokenVariant = errors.New("wrong token variant", errors.CategoryAuth).
	WithTextCode(TextCodeWrongVariant).
	WithCode(errors.CodeForbidden)

// ErrInsufficientRole is returned when the resolved user's role is not in
// the guard's allowed set.
var ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuth).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
