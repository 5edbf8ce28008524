package chirp_test

import (
	"context"
	"testing"
	"time"

	chirp "github.com/goliatone/go-chirp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTrackedUser(t *testing.T, password string) *chirp.User {
	t.Helper()

	hash, err := chirp.HashPassword(password)
	require.NoError(t, err)

	return &chirp.User{
		ID:           uuid.New(),
		Role:         chirp.RoleMember,
		Username:     "tester",
		Email:        "tester@example.com",
		PasswordHash: hash,
	}
}

func TestVerifyIdentitySuccess(t *testing.T) {
	user := newTrackedUser(t, "password123")

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "tester").Return(user, nil)
	store.On("TrackSuccessfulLogin", mock.Anything, user).Return(nil)

	provider := chirp.NewUserProvider(store)

	identity, err := provider.VerifyIdentity(context.Background(), "tester", "password123")
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "tester", identity.Username())
	assert.Equal(t, "tester@example.com", identity.Email())
	assert.Equal(t, "member", identity.Role())

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "TrackAttemptedLogin", mock.Anything, mock.Anything)
}

func TestVerifyIdentityWrongPassword(t *testing.T) {
	user := newTrackedUser(t, "password123")

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "tester").Return(user, nil)
	store.On("TrackAttemptedLogin", mock.Anything, user).Return(nil)

	provider := chirp.NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "tester", "wrong-password")
	assert.ErrorIs(t, err, chirp.ErrMismatchedHashAndPassword)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "TrackSuccessfulLogin", mock.Anything, mock.Anything)
}

func TestVerifyIdentityTooManyAttempts(t *testing.T) {
	user := newTrackedUser(t, "password123")
	now := time.Now()
	user.LoginAttempts = chirp.MaxLoginAttempts + 1
	user.LoginAttemptAt = &now

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "tester").Return(user, nil)

	provider := chirp.NewUserProvider(store)

	// even the correct password is rejected during cool down
	_, err := provider.VerifyIdentity(context.Background(), "tester", "password123")
	assert.ErrorIs(t, err, chirp.ErrTooManyLoginAttempts)
}

func TestVerifyIdentityCoolDownExpiry(t *testing.T) {
	user := newTrackedUser(t, "password123")
	stale := time.Now().Add(-48 * time.Hour)
	user.LoginAttempts = 10
	user.LoginAttemptAt = &stale

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "tester").Return(user, nil)
	store.On("TrackSuccessfulLogin", mock.Anything, user).Return(nil)

	provider := chirp.NewUserProvider(store)

	// the stale attempt window no longer counts against the user
	identity, err := provider.VerifyIdentity(context.Background(), "tester", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	store.AssertExpectations(t)
}

func TestVerifyIdentityNotFound(t *testing.T) {
	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "ghost").Return(nil, nil)

	provider := chirp.NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, chirp.ErrIdentityNotFound)
}

func TestVerifyIdentityNotFoundError(t *testing.T) {
	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "ghost").Return(nil, chirp.ErrRecordNotFound)

	provider := chirp.NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, chirp.ErrIdentityNotFound)
}

func TestVerifyIdentityInvalidRole(t *testing.T) {
	user := newTrackedUser(t, "password123")
	user.Role = chirp.UserRole("wizard")

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "tester").Return(user, nil)
	store.On("TrackSuccessfulLogin", mock.Anything, user).Return(nil)

	provider := chirp.NewUserProvider(store)

	_, err := provider.VerifyIdentity(context.Background(), "tester", "password123")
	assert.Error(t, err)
}

func TestFindIdentityByIdentifier(t *testing.T) {
	user := newTrackedUser(t, "password123")

	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, user.ID.String()).Return(user, nil)

	provider := chirp.NewUserProvider(store)

	identity, err := provider.FindIdentityByIdentifier(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "tester", identity.Username())
}

func TestFindIdentityByIdentifierNotFound(t *testing.T) {
	store := new(MockUserTracker)
	store.On("GetByIdentifier", mock.Anything, "ghost").Return(nil, chirp.ErrRecordNotFound)

	provider := chirp.NewUserProvider(store)

	_, err := provider.FindIdentityByIdentifier(context.Background(), "ghost")
	assert.ErrorIs(t, err, chirp.ErrIdentityNotFound)
}
