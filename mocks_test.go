package chirp_test

import (
	"context"

	chirp "github.com/goliatone/go-chirp"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements chirp.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (chirp.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(chirp.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (chirp.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(chirp.Identity)
	return identity, args.Error(1)
}

// MockUserTracker implements chirp.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*chirp.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*chirp.User)
	return user, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *chirp.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *chirp.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockLoginPayload implements chirp.LoginPayload
type MockLoginPayload struct {
	Identifier string
	Password   string
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

// testIdentity implements chirp.Identity
type testIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }
func (t testIdentity) Role() string     { return t.role }

// testConfig implements chirp.Config
type testConfig struct {
	signingKey      string
	signingMethod   string
	contextKey      string
	tokenExpiration int
	tokenLookup     string
	authScheme      string
	issuer          string
	audience        []string
	bcryptCost      int
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-key",
		signingMethod:   "HS256",
		contextKey:      "user",
		tokenExpiration: 1,
		tokenLookup:     "header:Authorization",
		authScheme:      "Bearer",
		issuer:          "chirp-test",
		audience:        []string{"chirp"},
	}
}

func (c *testConfig) GetSigningKey() string   { return c.signingKey }
func (c *testConfig) GetSigningMethod() string { return c.signingMethod }
func (c *testConfig) GetContextKey() string   { return c.contextKey }
func (c *testConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c *testConfig) GetTokenLookup() string  { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string   { return c.authScheme }
func (c *testConfig) GetIssuer() string       { return c.issuer }
func (c *testConfig) GetAudience() []string   { return c.audience }
func (c *testConfig) GetBcryptCost() int      { return c.bcryptCost }
