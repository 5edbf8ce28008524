package chirp

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterUserRoutes mounts profile, account, and social graph routes.
// Every route requires an authenticated session.
func RegisterUserRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...UserControllerOption) {
	controller := NewUserController(opts...)

	app.Get("/users/:id", controller.Profile, protected).
		SetName("users.profile")

	app.Put("/users/me", controller.UpdateProfile, protected).
		SetName("users.update")

	app.Delete("/users/me", controller.DeleteAccount, protected).
		SetName("users.delete")

	app.Post("/users/:id/follow", controller.Follow, protected).
		SetName("users.follow")

	app.Delete("/users/:id/follow", controller.Unfollow, protected).
		SetName("users.unfollow")
}

type UserController struct {
	Logger       Logger
	Repo         RepositoryManager
	Config       Config
	Auther       HTTPAuthenticator
	ActivitySink ActivitySink
	ErrorHandler router.ErrorHandler
}

type UserControllerOption func(*UserController) *UserController

func NewUserController(opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		ActivitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in user controller...")
	}

	if c.Config == nil {
		panic("Missing Config in user controller...")
	}

	return c
}

func (a *UserController) WithLogger(logger Logger) *UserController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *UserController) Profile(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	user, err := a.Repo.Users().GetProfile(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	tweets, err := a.Repo.Tweets().ListByUser(ctx.Context(), id, 0, 0)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user":   user.PublicProfile(),
		"tweets": tweets,
	})
}

// UpdateProfileRequest payload
type UpdateProfileRequest struct {
	Username       string `form:"username" json:"username"`
	ProfilePicture string `form:"profile_picture" json:"profile_picture"`
	Description    string `form:"description" json:"description"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Username, validation.Length(3, 30), is.Alphanumeric),
			validation.Field(&r.ProfilePicture, is.URL),
			validation.Field(&r.Description, validation.Length(0, 240)),
		)
	}, "Invalid profile update payload")
}

// UpdateProfile modifies the calling account only; the target is taken
// from the verified token, never from the payload.
func (a *UserController) UpdateProfile(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse profile payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	record := &User{
		Username:       payload.Username,
		ProfilePicture: payload.ProfilePicture,
		Description:    payload.Description,
	}
	record.ID = callerID

	user, err := a.Repo.Users().UpdateProfile(ctx.Context(), record)
	if err != nil {
		if isUniqueViolation(err) {
			return a.ErrorHandler(ctx, ErrDuplicateIdentity)
		}
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": user.PublicProfile(),
	})
}

// DeleteAccount removes the calling account and everything it owns.
func (a *UserController) DeleteAccount(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Repo.Users().DeleteAccount(ctx.Context(), callerID); err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	a.recordActivity(ctx, ActivityEventAccountDelete, callerID, nil)

	if a.Auther != nil {
		a.Auther.Logout(ctx)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"deleted": true,
	})
}

func (a *UserController) Follow(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	followeeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	status, err := a.Repo.Users().Follow(ctx.Context(), callerID, followeeID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	if status == FollowStatusFollowing {
		a.recordActivity(ctx, ActivityEventFollow, callerID, map[string]any{
			"followee_id": followeeID.String(),
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": status,
	})
}

func (a *UserController) Unfollow(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	followeeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	status, err := a.Repo.Users().Unfollow(ctx.Context(), callerID, followeeID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	if status == FollowStatusUnfollowed {
		a.recordActivity(ctx, ActivityEventUnfollow, callerID, map[string]any{
			"followee_id": followeeID.String(),
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": status,
	})
}

func (a *UserController) recordActivity(ctx router.Context, eventType ActivityEventType, actorID uuid.UUID, metadata map[string]any) {
	sink := normalizeActivitySink(a.ActivitySink)
	event := NewActivityEvent(eventType, ActorRef{ID: actorID.String(), Type: "user"}, actorID.String(), metadata)

	if err := sink.Record(ctx.Context(), event); err != nil {
		a.Logger.Warn("activity sink record error: %v", err)
	}
}
