package identity_test

import (
	"regexp"
	"testing"
	"time"

	identity "github.com/identitykit/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const urlTokenSecret = "url-token-secret-32-bytes-long!!"

func TestURLTokenCodecRoundTrip(t *testing.T) {
	codec := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Hour)

	token, err := codec.Issue(map[string]string{"email": "a@b.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	data, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "a@b.com"}, data)
}

func TestURLTokenCodecIsURLSafe(t *testing.T) {
	codec := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Hour)

	token, err := codec.Issue(map[string]string{"email": "weird+address@example.com"})
	require.NoError(t, err)

	// must survive a path segment without percent-encoding
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9._~-]+$`), token)
}

func TestURLTokenCodecExpiry(t *testing.T) {
	codec := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Nanosecond)

	token, err := codec.Issue(map[string]string{"email": "a@b.com"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, identity.ErrTokenExpired)
}

func TestURLTokenCodecSaltIsolation(t *testing.T) {
	verify := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Hour)
	reset := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltPasswordReset, time.Hour)

	token, err := verify.Issue(map[string]string{"email": "a@b.com"})
	require.NoError(t, err)

	_, err = reset.Decode(token)
	assert.True(t, identity.IsMalformedError(err))
}

func TestURLTokenCodecRejectsAccessTokens(t *testing.T) {
	codec := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Hour)
	tokens := identity.NewTokenService([]byte(urlTokenSecret), "test-issuer", nil)

	raw, err := tokens.Issue(testUser(), false, 0)
	require.NoError(t, err)

	_, err = codec.Decode(raw)
	assert.Error(t, err)
}

func TestURLTokenCodecGarbage(t *testing.T) {
	codec := identity.NewURLTokenCodec(urlTokenSecret, identity.SaltEmailVerification, time.Hour)

	_, err := codec.Decode("definitely-not-a-token")
	assert.True(t, identity.IsMalformedError(err))
}
