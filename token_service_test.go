package chirp_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	chirp "github.com/goliatone/go-chirp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *chirp.TokenServiceImpl {
	return chirp.NewTokenService(
		[]byte("test-signing-key"),
		1,
		"chirp-test",
		jwt.ClaimStrings{"chirp"},
		nil,
	)
}

func TestTokenServiceIssueAndValidate(t *testing.T) {
	ts := newTestTokenService()

	identity := testIdentity{
		id:       "b9e4ccd4-9c80-4c53-9183-a9a1ef63efb5",
		username: "tester",
		email:    "tester@example.com",
		role:     "member",
	}

	before := time.Now()
	token, expiresAt, err := ts.Issue(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// expiry is one hour out
	assert.WithinDuration(t, before.Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.Subject())
	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, "member", claims.Role())
	assert.WithinDuration(t, expiresAt, claims.Expires(), time.Second)
}

func TestTokenServiceIssueNilIdentity(t *testing.T) {
	ts := newTestTokenService()

	_, _, err := ts.Issue(nil)
	assert.Error(t, err)
}

func TestTokenServiceValidateTamperedToken(t *testing.T) {
	ts := newTestTokenService()

	token, _, err := ts.Issue(testIdentity{id: "user-1", role: "member"})
	require.NoError(t, err)

	// flip a character in the signature segment
	tampered := token[:len(token)-2] + "xx"

	_, err = ts.Validate(tampered)
	require.Error(t, err)
	assert.True(t, chirp.IsMalformedError(err), "expected malformed error, got: %v", err)
}

func TestTokenServiceValidateWrongKey(t *testing.T) {
	ts := newTestTokenService()
	other := chirp.NewTokenService([]byte("different-key"), 1, "chirp-test", jwt.ClaimStrings{"chirp"}, nil)

	token, _, err := other.Issue(testIdentity{id: "user-1", role: "member"})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.True(t, chirp.IsMalformedError(err))
}

func TestTokenServiceValidateExpiredToken(t *testing.T) {
	ts := newTestTokenService()

	token, _, err := ts.Issue(testIdentity{id: "user-1", role: "member"})
	require.NoError(t, err)

	// move the validator's clock past expiry
	ts.WithClock(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	})

	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, chirp.ErrTokenExpired)
	assert.True(t, chirp.IsTokenExpiredError(err))
}

func TestTokenServiceValidateGarbage(t *testing.T) {
	ts := newTestTokenService()

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := ts.Validate(raw)
		assert.Error(t, err)
	}
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	other := chirp.NewTokenService([]byte("test-signing-key"), 1, "someone-else", jwt.ClaimStrings{"chirp"}, nil)
	ts := newTestTokenService()

	token, _, err := other.Issue(testIdentity{id: "user-1", role: "member"})
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.Error(t, err)
}
