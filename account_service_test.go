package identity_test

import (
	"context"
	"testing"

	identity "github.com/identitykit/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrationInput() identity.RegistrationInput {
	return identity.RegistrationInput{
		FirstName: "Alice",
		LastName:  "Doe",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "s3cret-password",
	}
}

func TestAccountServiceCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a user with defaults", func(t *testing.T) {
		accounts := setupAccounts(t)

		user, err := accounts.CreateUser(ctx, registrationInput())
		require.NoError(t, err)

		assert.NotEqual(t, "", user.UID.String())
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, identity.RoleUser, user.Role)
		assert.False(t, user.IsVerified)
		assert.False(t, user.CreatedAt.IsZero())

		// the stored value is a hash, never the password
		assert.NotEqual(t, "s3cret-password", user.PasswordHash)
		assert.NoError(t, identity.ComparePasswordAndHash("s3cret-password", user.PasswordHash))
	})

	t.Run("username defaults to the email local part", func(t *testing.T) {
		accounts := setupAccounts(t)

		input := registrationInput()
		input.Username = ""
		input.Email = "bob.smith@example.com"

		user, err := accounts.CreateUser(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "bob.smith", user.Username)
	})

	t.Run("duplicate email", func(t *testing.T) {
		accounts := setupAccounts(t)

		_, err := accounts.CreateUser(ctx, registrationInput())
		require.NoError(t, err)

		input := registrationInput()
		input.Username = "alice2"

		_, err = accounts.CreateUser(ctx, input)
		assert.ErrorIs(t, err, identity.ErrEmailTaken)
	})

	t.Run("duplicate username", func(t *testing.T) {
		accounts := setupAccounts(t)

		_, err := accounts.CreateUser(ctx, registrationInput())
		require.NoError(t, err)

		input := registrationInput()
		input.Email = "alice+other@example.com"

		_, err = accounts.CreateUser(ctx, input)
		assert.ErrorIs(t, err, identity.ErrUsernameTaken)
	})

	t.Run("empty password", func(t *testing.T) {
		accounts := setupAccounts(t)

		input := registrationInput()
		input.Password = ""

		_, err := accounts.CreateUser(ctx, input)
		assert.Error(t, err)
	})
}

func TestAccountServiceVerifyCredentials(t *testing.T) {
	ctx := context.Background()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, registrationInput())
	require.NoError(t, err)

	t.Run("unverified account", func(t *testing.T) {
		_, err := accounts.VerifyCredentials(ctx, user.Email, "s3cret-password")
		assert.ErrorIs(t, err, identity.ErrAccountNotVerified)
	})

	_, err = accounts.MarkVerified(ctx, user.Email)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		got, err := accounts.VerifyCredentials(ctx, user.Email, "s3cret-password")
		require.NoError(t, err)
		assert.Equal(t, user.UID, got.UID)
		assert.True(t, got.IsVerified)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := accounts.VerifyCredentials(ctx, user.Email, "not-the-password")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("unknown email looks like a wrong password", func(t *testing.T) {
		_, err := accounts.VerifyCredentials(ctx, "nobody@example.com", "s3cret-password")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}

func TestAccountServiceMarkVerified(t *testing.T) {
	ctx := context.Background()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, registrationInput())
	require.NoError(t, err)
	require.False(t, user.IsVerified)

	verified, err := accounts.MarkVerified(ctx, user.Email)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	// replaying a verification link is harmless
	again, err := accounts.MarkVerified(ctx, user.Email)
	require.NoError(t, err)
	assert.True(t, again.IsVerified)

	t.Run("unknown email", func(t *testing.T) {
		_, err := accounts.MarkVerified(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})
}

func TestAccountServiceUpdateUser(t *testing.T) {
	ctx := context.Background()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, registrationInput())
	require.NoError(t, err)

	first := "Alicia"
	role := identity.RoleAdmin

	updated, err := accounts.UpdateUser(ctx, user.UID, identity.UserPatch{
		FirstName: &first,
		Role:      &role,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, identity.RoleAdmin, updated.Role)
	// untouched fields survive the patch
	assert.Equal(t, user.Email, updated.Email)
	assert.Equal(t, user.Username, updated.Username)
}

func TestAccountServiceResetPassword(t *testing.T) {
	ctx := context.Background()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, registrationInput())
	require.NoError(t, err)

	_, err = accounts.MarkVerified(ctx, user.Email)
	require.NoError(t, err)

	updated, err := accounts.ResetPassword(ctx, user.Email, "brand-new-password")
	require.NoError(t, err)

	assert.NoError(t, identity.ComparePasswordAndHash("brand-new-password", updated.PasswordHash))

	_, err = accounts.VerifyCredentials(ctx, user.Email, "s3cret-password")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = accounts.VerifyCredentials(ctx, user.Email, "brand-new-password")
	assert.NoError(t, err)
}

func TestAccountServiceLookups(t *testing.T) {
	ctx := context.Background()
	accounts := setupAccounts(t)

	user, err := accounts.CreateUser(ctx, registrationInput())
	require.NoError(t, err)

	t.Run("find by email", func(t *testing.T) {
		got, err := accounts.FindByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.UID, got.UID)
	})

	t.Run("find by id", func(t *testing.T) {
		got, err := accounts.FindByID(ctx, user.UID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)
	})

	t.Run("existence checks", func(t *testing.T) {
		taken, err := accounts.EmailExists(ctx, user.Email)
		require.NoError(t, err)
		assert.True(t, taken)

		taken, err = accounts.UsernameExists(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, taken)
	})
}

func TestPasswordFingerprint(t *testing.T) {
	a := identity.PasswordFingerprint("hash-one")
	b := identity.PasswordFingerprint("hash-two")

	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, identity.PasswordFingerprint("hash-one"))
}
