package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// Locals keys for values the guards hand to downstream handlers.
const (
	ClaimsContextKey = "identity:claims"
	UserContextKey   = "identity:user"
)

// TokenGuard gates a route on a bearer token. Per request it walks
// missing -> malformed -> (expired | revoked | valid); only a valid token
// of the expected variant reaches the handler, with its claims stored in
// the request locals.
type TokenGuard struct {
	tokens  *TokenService
	revoked RevocationStore
	refresh bool
	logger  Logger
}

// NewAccessGuard gates routes on a valid, unrevoked access token.
func NewAccessGuard(tokens *TokenService, revoked RevocationStore, logger Logger) *TokenGuard {
	return newTokenGuard(tokens, revoked, false, logger)
}

// NewRefreshGuard gates routes on a valid, unrevoked refresh token.
func NewRefreshGuard(tokens *TokenService, revoked RevocationStore, logger Logger) *TokenGuard {
	return newTokenGuard(tokens, revoked, true, logger)
}

func newTokenGuard(tokens *TokenService, revoked RevocationStore, refresh bool, logger Logger) *TokenGuard {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenGuard{
		tokens:  tokens,
		revoked: revoked,
		refresh: refresh,
		logger:  logger,
	}
}

// Handle is the fiber middleware entrypoint.
func (g *TokenGuard) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return respondError(c, err)
	}

	claims, err := g.tokens.Decode(raw)
	if err != nil {
		if g.refresh && IsTokenExpiredError(err) {
			// refresh clients are expected to re-authenticate, not retry
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": ErrTokenExpired.Message,
				"code":    TextCodeTokenExpired,
			})
		}
		return respondError(c, err)
	}

	if claims.Refresh != g.refresh {
		return respondError(c, ErrWrongTokenVariant)
	}

	if claims.TimeToExpiry() <= 0 {
		return respondError(c, ErrTokenExpired)
	}

	revoked, err := g.revoked.Contains(c.Context(), claims.JTI())
	if err != nil {
		g.logger.Error("TokenGuard revocation check failed: %v", err)
		return respondError(c, errors.Wrap(err, errors.CategoryInternal, "revocation check failed"))
	}
	if revoked {
		return respondError(c, ErrTokenRevoked)
	}

	c.Locals(ClaimsContextKey, claims)

	return c.Next()
}

// RoleGuard authorizes authenticated claims against a fixed allowed-role
// set, resolving the claims to the stored user first. It must run after a
// TokenGuard.
type RoleGuard struct {
	accounts *AccountService
	allowed  map[UserRole]struct{}
	logger   Logger
}

// NewRoleGuard builds a guard allowing only the given roles.
func NewRoleGuard(accounts *AccountService, roles ...UserRole) *RoleGuard {
	allowed := make(map[UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return &RoleGuard{
		accounts: accounts,
		allowed:  allowed,
		logger:   defLogger{},
	}
}

// WithLogger replaces the guard's logger.
func (g *RoleGuard) WithLogger(logger Logger) *RoleGuard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Handle is the fiber middleware entrypoint.
func (g *RoleGuard) Handle(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	uid, err := claims.UserUUID()
	if err != nil {
		return respondError(c, ErrTokenMalformed)
	}

	user, err := g.accounts.FindByID(c.Context(), uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// token outlived the account
			return respondError(c, ErrInsufficientRole)
		}
		return respondError(c, err)
	}

	if _, ok := g.allowed[user.Role]; !ok {
		g.logger.Warn("RoleGuard rejected role %q for user %s", user.Role, user.UID)
		return respondError(c, ErrInsufficientRole)
	}

	c.Locals(UserContextKey, user)

	return c.Next()
}

// ClaimsFromContext returns the claims stored by a TokenGuard.
func ClaimsFromContext(c *fiber.Ctx) (*TokenClaims, error) {
	claims, ok := c.Locals(ClaimsContextKey).(*TokenClaims)
	if !ok || claims == nil {
		return nil, ErrTokenMissing
	}
	return claims, nil
}

// UserFromContext returns the user resolved by a RoleGuard.
func UserFromContext(c *fiber.Ctx) (*User, error) {
	user, ok := c.Locals(UserContextKey).(*User)
	if !ok || user == nil {
		return nil, ErrTokenMissing
	}
	return user, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrTokenMissing
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrTokenMissing
	}

	return strings.TrimSpace(parts[1]), nil
}
