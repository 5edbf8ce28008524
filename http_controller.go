package chirp

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrUnableToFindSession
	}

	if claims, ok := cookie.(AuthClaims); ok {
		return sessionFromAuthClaims(claims)
	}

	user, ok := cookie.(*jwt.Token)
	if user == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromClaims(claims)
}

// RegisterAuthRoutes mounts signup, signin, signout, and the session
// introspection endpoint.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	app.Post(controller.Routes.Signup, controller.Signup).
		SetName("auth.signup")

	app.Post(controller.Routes.Signin, controller.Signin).
		SetName("auth.signin")

	app.Post(controller.Routes.Signout, controller.Signout, protected).
		SetName("auth.signout")

	app.Get(controller.Routes.Session, controller.Session, protected).
		SetName("auth.session")
}

type AuthControllerRoutes struct {
	Signup  string
	Signin  string
	Signout string
	Session string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Auth         Authenticator
	Config       Config
	Hasher       Hasher
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Routes: &AuthControllerRoutes{
			Signup:  "/auth/signup",
			Signin:  "/auth/signin",
			Signout: "/auth/signout",
			Session: "/auth/session",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Hasher == (Hasher{}) {
		c.Hasher = NewHasher(c.Config.GetBcryptCost())
	}

	return c
}

func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// SignupRequest payload
type SignupRequest struct {
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	ProfilePicture  string `form:"profile_picture" json:"profile_picture"`
	Description     string `form:"description" json:"description"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Username, validation.Required, validation.Length(3, 30), is.Alphanumeric),
			validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
			validation.Field(
				&r.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(r.Password)),
			),
			validation.Field(&r.Description, validation.Length(0, 240)),
		)
	}, "Invalid signup request payload")
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Signup bind error", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse signup payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	hash, err := a.Hasher.HashPassword(payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user := &User{
		Username:       payload.Username,
		Email:          payload.Email,
		PasswordHash:   hash,
		ProfilePicture: payload.ProfilePicture,
		Description:    payload.Description,
	}

	record, err := a.Repo.Users().Register(ctx.Context(), user)
	if err != nil {
		if isUniqueViolation(err) {
			return a.ErrorHandler(ctx, ErrDuplicateIdentity)
		}
		return a.ErrorHandler(ctx, err)
	}

	token, err := a.Auth.Signup(ctx.Context(), NewIdentityFromUser(record))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.Auther.IssueSession(ctx, token)

	return ctx.JSON(http.StatusCreated, map[string]any{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
		"user":       record.PublicProfile(),
	})
}

// SigninRequest payload
type SigninRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r SigninRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r SigninRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r SigninRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Identifier, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	}, "Invalid signin request payload")
}

func (a *AuthController) Signin(ctx router.Context) error {
	payload := new(SigninRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Signin bind error", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse signin payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"token":      token.Token,
		"expires_at": token.ExpiresAt,
	})
}

func (a *AuthController) Signout(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusOK, map[string]any{
		"signed_out": true,
	})
}

// Session returns the verified session for the calling token.
func (a *AuthController) Session(ctx router.Context) error {
	session, err := GetRouterSession(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryAuth, "Unable to resolve session").
			WithCode(errors.CodeUnauthorized))
	}

	uid, err := session.GetUserUUID()
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetProfile(ctx.Context(), uid)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"session": session,
		"user":    user.PublicProfile(),
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}
