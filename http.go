package chirp

import (
	"context"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-chirp/middleware/jwtware"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// TransportMode names how session tokens travel between client and
// server. A deployment runs in exactly one mode; accepting both would
// let a token minted for one surface leak into the other.
type TransportMode string

const (
	TransportBearer TransportMode = "bearer"
	TransportCookie TransportMode = "cookie"
)

// TransportModeFromLookup derives the transport mode and source name
// from a token lookup string like "header:Authorization" or
// "cookie:access_token". Lookups naming several sources, or a source
// other than header/cookie, are configuration errors.
func TransportModeFromLookup(lookup string) (TransportMode, string, error) {
	if err := jwtware.ValidateTokenLookup(lookup); err != nil {
		return "", "", errors.Wrap(err, errors.CategoryBadInput, "invalid session transport configuration").
			WithTextCode("INVALID_TRANSPORT")
	}

	parts := strings.SplitN(strings.TrimSpace(lookup), ":", 2)
	source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	switch source {
	case "header":
		return TransportBearer, name, nil
	case "cookie":
		return TransportCookie, name, nil
	default:
		return "", "", errors.New("session transport must read tokens from a header or a cookie", errors.CategoryBadInput).
			WithTextCode("INVALID_TRANSPORT").
			WithMetadata(map[string]any{"source": source})
	}
}

// LoginPayload has the data we need to log in a user
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// HTTPAuthenticator is the surface route handlers use to authenticate
// requests and manage session transport.
type HTTPAuthenticator interface {
	Login(ctx router.Context, payload LoginPayload) (*IssuedToken, error)
	IssueSession(ctx router.Context, token *IssuedToken)
	Logout(ctx router.Context)
	Mode() TransportMode
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	ProtectedRouteMinRole(cfg Config, minRole string, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error
}

type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	mode           TransportMode
	cookieName     string
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	mode, sourceName, err := TransportModeFromLookup(cfg.GetTokenLookup())
	if err != nil {
		return nil, err
	}

	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		mode:           mode,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
	}

	if mode == TransportCookie {
		a.cookieName = sourceName
	}

	a.ErrorHandler = WriteError

	return a, nil
}

func (a RouteAuthenticator) Mode() TransportMode {
	return a.mode
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		TokenValidator: &routeTokenValidator{
			cfg: cfg,
		},
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

// ProtectedRouteMinRole guards a route like ProtectedRoute and
// additionally requires the caller's role to be at least minRole.
func (a *RouteAuthenticator) ProtectedRouteMinRole(cfg Config, minRole string, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:  cfg.GetAuthScheme(),
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		MinimumRole: minRole,
		TokenValidator: &routeTokenValidator{
			cfg: cfg,
		},
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (*IssuedToken, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	a.IssueSession(ctx, token)

	return token, nil
}

// IssueSession hands the minted token to the client over the
// configured transport. In bearer mode the token travels in the
// response body only; in cookie mode we also set the session cookie.
func (a *RouteAuthenticator) IssueSession(ctx router.Context, token *IssuedToken) {
	if a.mode != TransportCookie || token == nil {
		return
	}

	a.setCookieToken(ctx, token.Token, a.cookieDuration)
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	if a.mode == TransportCookie {
		a.cookieDel(ctx, a.cookieName)
	}
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if strings.Contains(err.Error(), "access denied") {
			richErr = errors.Wrap(err, errors.CategoryAuthz, "Insufficient role").
				WithTextCode("FORBIDDEN").
				WithCode(errors.CodeForbidden)
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// routeTokenValidator adapts the root TokenService to the middleware's
// validator interface.
type routeTokenValidator struct {
	cfg Config
	ts  TokenService
}

func (v *routeTokenValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	if v.ts == nil {
		v.ts = NewTokenService(
			[]byte(v.cfg.GetSigningKey()),
			v.cfg.GetTokenExpiration(),
			v.cfg.GetIssuer(),
			v.cfg.GetAudience(),
			defLogger{},
		)
	}

	claims, err := v.ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// WriteError translates an error into the JSON error envelope. Rich
// errors carry their own status code and text code; anything else is
// treated as an unexpected server error.
func WriteError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := map[string]any{
		"message":  richErr.Message,
		"kind":     richErr.TextCode,
		"category": richErr.Category,
	}

	if richErr.Category == errors.CategoryValidation {
		if fields := richErr.ValidationMap(); len(fields) > 0 {
			payload["fields"] = fields
		}
	}

	body := map[string]any{"error": payload}

	if len(richErr.Metadata) > 0 {
		if debugJSON := print.MaybePrettyJSON(richErr.Metadata); debugJSON != "" {
			// metadata is internal detail; log it, never echo it back
			defLogger{}.Debug("request error metadata: %s", debugJSON)
		}
	}

	return c.JSON(status, body)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["_"] = err.Error()
	return out
}
