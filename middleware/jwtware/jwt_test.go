package jwtware_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-chirp/middleware/jwtware"
)

// stubClaims implements jwtware.AuthClaims for middleware tests.
type stubClaims struct {
	subject string
	role    string
}

func (s stubClaims) Subject() string { return s.subject }
func (s stubClaims) UserID() string  { return s.subject }
func (s stubClaims) Role() string    { return s.role }
func (s stubClaims) HasRole(role string) bool {
	return s.role == role
}

func (s stubClaims) IsAtLeast(minRole string) bool {
	levels := map[string]int{"guest": 0, "member": 1, "admin": 2}
	current, ok := levels[s.role]
	if !ok {
		return false
	}
	min, ok := levels[minRole]
	if !ok {
		return false
	}
	return current >= min
}

// stubValidator accepts a single known token string.
type stubValidator struct {
	token  string
	claims jwtware.AuthClaims
	err    error
}

func (v stubValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	if raw != v.token {
		return nil, errors.New("token is malformed")
	}
	return v.claims, nil
}

func newHandler(cfg jwtware.Config) router.HandlerFunc {
	return jwtware.New(cfg)(func(ctx router.Context) error {
		return nil
	})
}

func passthroughErrors(c router.Context, err error) error {
	return err
}

func TestHeaderExtraction(t *testing.T) {
	validator := stubValidator{
		token:  "valid-token",
		claims: stubClaims{subject: "12345", role: "member"},
	}

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: validator,
		ErrorHandler:   passthroughErrors,
	}
	handler := newHandler(cfg)

	// valid token
	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer valid-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer valid-token")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := handler(ctx); err != nil {
		t.Fatalf("unexpected error for valid token: %v", err)
	}
	if !ctx.NextCalled {
		t.Errorf("expected NextCalled to be true, but got false")
	}

	// missing token
	ctx = router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")
	err := handler(ctx)
	if err == nil {
		t.Fatal("expected error for missing token, got nil")
	}
	if !strings.Contains(err.Error(), jwtware.ErrJWTMissingOrMalformed.Error()) {
		t.Errorf("expected missing token error, got: %v", err)
	}

	// unknown token
	ctx = router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer other-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer other-token")
	err = handler(ctx)
	if err == nil {
		t.Fatal("expected error for rejected token, got nil")
	}
	if !strings.Contains(err.Error(), "token is malformed") {
		t.Errorf("expected 'token is malformed' error, got: %v", err)
	}
}

func TestCookieExtraction(t *testing.T) {
	validator := stubValidator{
		token:  "cookie-token",
		claims: stubClaims{subject: "12345", role: "member"},
	}

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:access_token",
		ErrorHandler:   passthroughErrors,
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.CookiesM["access_token"] = "cookie-token"
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := handler(ctx); err != nil {
		t.Fatalf("unexpected error for valid cookie token: %v", err)
	}
	if !ctx.NextCalled {
		t.Errorf("expected Next to be invoked for valid token")
	}

	// a bearer header is ignored in cookie mode
	ctx = router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer cookie-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer cookie-token").Maybe()
	err := handler(ctx)
	if err == nil {
		t.Fatal("expected error when token is only in the header, got nil")
	}
}

func TestQueryExtraction(t *testing.T) {
	validator := stubValidator{
		token:  "query-token",
		claims: stubClaims{subject: "12345", role: "member"},
	}

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: validator,
		TokenLookup:    "query:token",
		ErrorHandler:   passthroughErrors,
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.QueriesM["token"] = "query-token"
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := handler(ctx); err != nil {
		t.Fatalf("unexpected error for valid query token: %v", err)
	}
	if !ctx.NextCalled {
		t.Errorf("expected Next to be invoked for valid token")
	}
}

func TestValidatorErrorPropagates(t *testing.T) {
	forced := errors.New("token is expired")

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: stubValidator{err: forced},
		ErrorHandler:   passthroughErrors,
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer whatever"
	ctx.On("GetString", "Authorization", "").Return("Bearer whatever")

	err := handler(ctx)
	if !errors.Is(err, forced) {
		t.Fatalf("expected validator error to propagate, got: %v", err)
	}
}

// customPathMock overrides Path() from our base MockContext.
type customPathMock struct {
	*router.MockContext
	pathOverride string
}

func (m *customPathMock) Path() string {
	return m.pathOverride
}

func TestFilterFunction(t *testing.T) {
	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: stubValidator{},
		Filter: func(ctx router.Context) bool {
			// skip the middleware on "/public"
			return ctx.Path() == "/public"
		},
	}
	handler := newHandler(cfg)

	ctx := &customPathMock{
		MockContext:  router.NewMockContext(),
		pathOverride: "/public",
	}

	if err := handler(ctx); err != nil {
		t.Fatalf("expected no error because Filter should skip, got %v", err)
	}
	if !ctx.NextCalled {
		t.Errorf("expected Next() to be invoked due to Filter skip")
	}
}

func TestRequiredRole(t *testing.T) {
	validator := stubValidator{
		token:  "member-token",
		claims: stubClaims{subject: "12345", role: "member"},
	}

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: validator,
		RequiredRole:   "admin",
		ErrorHandler:   passthroughErrors,
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer member-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer member-token")

	err := handler(ctx)
	if err == nil {
		t.Fatal("expected access denied for missing role, got nil")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected access denied error, got: %v", err)
	}
}

func TestMinimumRole(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		minimum   string
		wantError bool
	}{
		{"admin passes member minimum", "admin", "member", false},
		{"member passes member minimum", "member", "member", false},
		{"member fails admin minimum", "member", "admin", true},
		{"guest fails member minimum", "guest", "member", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := jwtware.Config{
				SigningKey: jwtware.SigningKey{
					Key:    []byte("test-secret"),
					JWTAlg: jwt.SigningMethodHS256.Alg(),
				},
				TokenValidator: stubValidator{
					token:  "role-token",
					claims: stubClaims{subject: "12345", role: tc.role},
				},
				MinimumRole:  tc.minimum,
				ErrorHandler: passthroughErrors,
			}
			handler := newHandler(cfg)

			ctx := router.NewMockContext()
			ctx.HeadersM["Authorization"] = "Bearer role-token"
			ctx.On("GetString", "Authorization", "").Return("Bearer role-token")
			ctx.On("Locals", "user", mock.Anything).Return(nil).Maybe()

			err := handler(ctx)
			if tc.wantError {
				if err == nil {
					t.Fatal("expected access denied, got nil")
				}
				if !strings.Contains(err.Error(), "access denied") {
					t.Errorf("expected access denied error, got: %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !ctx.NextCalled {
				t.Errorf("middleware did not call Next() on success")
			}
		})
	}
}

func TestValidationListeners(t *testing.T) {
	validator := stubValidator{
		token:  "valid-token",
		claims: stubClaims{subject: "12345", role: "member"},
	}

	var seen []string
	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: validator,
		ErrorHandler:   passthroughErrors,
		ValidationListeners: []jwtware.ValidationListener{
			nil, // nil listeners are skipped
			func(ctx router.Context, claims jwtware.AuthClaims) error {
				seen = append(seen, claims.UserID())
				return nil
			},
		},
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer valid-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer valid-token")
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	if err := handler(ctx); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(seen) != 1 || seen[0] != "12345" {
		t.Errorf("expected listener to observe user 12345, got %v", seen)
	}
}

func TestValidationListenerFailureBlocks(t *testing.T) {
	forced := errors.New("listener rejected request")

	cfg := jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: stubValidator{
			token:  "valid-token",
			claims: stubClaims{subject: "12345", role: "member"},
		},
		ErrorHandler: passthroughErrors,
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.AuthClaims) error {
				return forced
			},
		},
	}
	handler := newHandler(cfg)

	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer valid-token"
	ctx.On("GetString", "Authorization", "").Return("Bearer valid-token")

	err := handler(ctx)
	if !errors.Is(err, forced) {
		t.Fatalf("expected listener error to propagate, got: %v", err)
	}
	if ctx.NextCalled {
		t.Error("expected Next() not to be called after listener failure")
	}
}

func TestValidateTokenLookup(t *testing.T) {
	tests := []struct {
		name      string
		lookup    string
		wantError bool
	}{
		{"header source", "header:Authorization", false},
		{"cookie source", "cookie:access_token", false},
		{"query source", "query:token", false},
		{"param source", "param:token", false},
		{"multiple sources", "header:Authorization,cookie:jwt", true},
		{"missing name", "header:", true},
		{"missing separator", "header", true},
		{"unknown source", "body:token", true},
		{"empty lookup", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := jwtware.ValidateTokenLookup(tc.lookup)
			if tc.wantError && err == nil {
				t.Errorf("expected error for lookup %q, got nil", tc.lookup)
			}
			if !tc.wantError && err != nil {
				t.Errorf("expected no error for lookup %q, got %v", tc.lookup, err)
			}
		})
	}
}

func TestGetDefaultConfigPanicsWithoutValidator(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for missing TokenValidator")
		}
	}()

	jwtware.GetDefaultConfig(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
	})
}

func TestGetDefaultConfigPanicsOnMultiSourceLookup(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for multi source token lookup")
		}
	}()

	jwtware.GetDefaultConfig(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: jwt.SigningMethodHS256.Alg(),
		},
		TokenValidator: stubValidator{},
		TokenLookup:    "header:Authorization,cookie:jwt",
	})
}
