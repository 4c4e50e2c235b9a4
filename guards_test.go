package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	identity "github.com/identitykit/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardApp(t *testing.T, handlers ...fiber.Handler) *fiber.App {
	t.Helper()

	app := fiber.New()

	route := append([]fiber.Handler{}, handlers...)
	route = append(route, func(c *fiber.Ctx) error {
		claims, err := identity.ClaimsFromContext(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"jti": claims.JTI()})
	})

	app.Get("/protected", route...)

	return app
}

func protectedRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)

	return res
}

func TestAccessGuard(t *testing.T) {
	ts := newTokenService()
	user := testUser()

	t.Run("missing authorization header", func(t *testing.T) {
		guard := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		res := protectedRequest(t, app, "")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		guard := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		res := protectedRequest(t, app, "not.a.token")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		guard := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, false, time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		guard := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, true, 0)
		require.NoError(t, err)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("revoked token rejected", func(t *testing.T) {
		revoked := identity.NewMemoryRevocationStore()
		guard := identity.NewAccessGuard(ts, revoked, nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, false, 0)
		require.NoError(t, err)

		claims, err := ts.Decode(raw)
		require.NoError(t, err)
		require.NoError(t, revoked.Add(context.Background(), claims.JTI(), time.Minute))

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("valid token reaches handler", func(t *testing.T) {
		guard := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, false, 0)
		require.NoError(t, err)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})
}

func TestRefreshGuard(t *testing.T) {
	ts := newTokenService()
	user := testUser()

	t.Run("access token rejected", func(t *testing.T) {
		guard := identity.NewRefreshGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, false, 0)
		require.NoError(t, err)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("expired refresh token gets 400", func(t *testing.T) {
		guard := identity.NewRefreshGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, true, time.Nanosecond)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})

	t.Run("valid refresh token passes", func(t *testing.T) {
		guard := identity.NewRefreshGuard(ts, identity.NewMemoryRevocationStore(), nil)
		app := guardApp(t, guard.Handle)

		raw, err := ts.Issue(user, true, 0)
		require.NoError(t, err)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})
}

func TestRoleGuard(t *testing.T) {
	ctx := context.Background()
	ts := newTokenService()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, identity.RegistrationInput{
		FirstName: "Alice",
		LastName:  "Doe",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "s3cret-password",
	})
	require.NoError(t, err)

	raw, err := ts.Issue(user, false, 0)
	require.NoError(t, err)

	access := identity.NewAccessGuard(ts, identity.NewMemoryRevocationStore(), nil)

	t.Run("allowed role passes and resolves the user", func(t *testing.T) {
		role := identity.NewRoleGuard(accounts, identity.RoleUser, identity.RoleAdmin)

		app := fiber.New()
		app.Get("/protected", access.Handle, role.Handle, func(c *fiber.Ctx) error {
			got, err := identity.UserFromContext(c)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"uid": got.UID})
		})

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("role outside the allowed set is rejected", func(t *testing.T) {
		role := identity.NewRoleGuard(accounts, identity.RoleAdmin)
		app := guardApp(t, access.Handle, role.Handle)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("token for a deleted account is rejected", func(t *testing.T) {
		ghost := testUser()
		ghostToken, err := ts.Issue(ghost, false, 0)
		require.NoError(t, err)

		role := identity.NewRoleGuard(accounts, identity.RoleUser)
		app := guardApp(t, access.Handle, role.Handle)

		res := protectedRequest(t, app, ghostToken)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("missing claims fail closed", func(t *testing.T) {
		role := identity.NewRoleGuard(accounts, identity.RoleUser)
		app := guardApp(t, role.Handle)

		res := protectedRequest(t, app, raw)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}
