package chirp

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session token
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims")

// ErrUnableToParseData unable to read registered claims from token
var ErrUnableToParseData = errors.New("unable to parse claims data")

// ErrNoEmptyString rejects empty password input before hashing
var ErrNoEmptyString = errors.New("password should not be an empty string")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned when the password does not
// match the stored hash. Kept deliberately vague in its message.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired signals the token was valid but is past its expiry.
// Distinct text code so clients know to re-authenticate.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures and unparseable tokens
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when no token is present at the
// configured transport location
var ErrUnauthenticated = goerrors.New("you are not authenticated", goerrors.CategoryAuth).
	WithTextCode("UNAUTHENTICATED").
	WithCode(goerrors.CodeUnauthorized)

// ErrNotResourceOwner is returned when an authenticated caller acts on
// a resource owned by a different account
var ErrNotResourceOwner = goerrors.New("you do not own this resource", goerrors.CategoryAuthz).
	WithTextCode("NOT_RESOURCE_OWNER").
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateIdentity maps unique username/email violations
var ErrDuplicateIdentity = goerrors.New("username or email already taken", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_IDENTITY").
	WithCode(goerrors.CodeConflict)

// ErrSelfFollow rejects follow edges from an account to itself
var ErrSelfFollow = goerrors.New("accounts cannot follow themselves", goerrors.CategoryValidation).
	WithTextCode("SELF_FOLLOW").
	WithCode(goerrors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned during the login cool down window
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS").
	WithCode(goerrors.CodeUnauthorized)

// ErrRecordNotFound is the generic not found error for domain records
var ErrRecordNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode("RECORD_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// isUniqueViolation sniffs driver errors for unique constraint
// failures. Both sqlite and postgres surface these as plain errors
// with no shared sentinel, so we match on message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// translateNotFound maps store-level not found errors onto the
// domain's rich not found error, passing everything else through.
func translateNotFound(err error) error {
	if err == nil {
		return nil
	}
	if goerrors.IsNotFound(err) {
		return ErrRecordNotFound
	}
	return err
}

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

// IsMalformedError will check for bad signatures and unparseable
// tokens. Checks the sentinel and text code before falling back to
// message matching, so rich errors stay recognized regardless of how
// their messages render.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == "TOKEN_MALFORMED" {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
