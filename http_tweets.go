package chirp

import (
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// tweetBodyMaxLen caps tweet length, matching the classic limit.
const tweetBodyMaxLen = 280

// RegisterTweetRoutes mounts tweet CRUD, like toggles, and feeds.
func RegisterTweetRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...TweetControllerOption) {
	controller := NewTweetController(opts...)

	app.Post("/tweets", controller.Post, protected).
		SetName("tweets.post")

	app.Get("/tweets/explore", controller.Explore, protected).
		SetName("tweets.explore")

	app.Get("/tweets/timeline", controller.Timeline, protected).
		SetName("tweets.timeline")

	app.Get("/tweets/:id", controller.Show, protected).
		SetName("tweets.show")

	app.Delete("/tweets/:id", controller.Delete, protected).
		SetName("tweets.delete")

	app.Post("/tweets/:id/like", controller.ToggleLike, protected).
		SetName("tweets.like")
}

type TweetController struct {
	Logger       Logger
	Repo         RepositoryManager
	Config       Config
	ErrorHandler router.ErrorHandler
}

type TweetControllerOption func(*TweetController) *TweetController

func NewTweetController(opts ...TweetControllerOption) *TweetController {
	c := &TweetController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in tweet controller...")
	}

	if c.Config == nil {
		panic("Missing Config in tweet controller...")
	}

	return c
}

func (a *TweetController) WithLogger(logger Logger) *TweetController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// PostTweetRequest payload
type PostTweetRequest struct {
	Body string `form:"body" json:"body"`
}

// Validate will run validation rules
func (r PostTweetRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Body, validation.Required, validation.Length(1, tweetBodyMaxLen)),
		)
	}, "Invalid tweet payload")
}

func (a *TweetController) Post(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(PostTweetRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse tweet payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	tweet := &Tweet{
		UserID: callerID,
		Body:   payload.Body,
	}

	record, err := a.Repo.Tweets().Post(ctx.Context(), tweet)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"tweet": record,
	})
}

func (a *TweetController) Show(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid tweet id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	record, err := a.Repo.Tweets().GetWithLikes(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"tweet": record,
	})
}

// Delete removes a tweet. Only the author may remove it; the check
// runs against the verified caller, not payload data.
func (a *TweetController) Delete(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid tweet id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	record, err := a.Repo.Tweets().GetByID(ctx.Context(), id.String())
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	if err := RequireOwner(callerID, record.UserID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Repo.Tweets().Remove(ctx.Context(), id); err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"deleted": true,
	})
}

func (a *TweetController) ToggleLike(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid tweet id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	status, err := a.Repo.Tweets().ToggleLike(ctx.Context(), id, callerID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": status,
	})
}

func (a *TweetController) Timeline(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	limit, offset := paginationParams(ctx)

	records, err := a.Repo.Tweets().Timeline(ctx.Context(), callerID, limit, offset)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"tweets": records,
	})
}

func (a *TweetController) Explore(ctx router.Context) error {
	limit, _ := paginationParams(ctx)

	records, err := a.Repo.Tweets().Explore(ctx.Context(), limit)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"tweets": records,
	})
}

func paginationParams(ctx router.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(ctx.Query("limit", ""))
	offset, _ = strconv.Atoi(ctx.Query("offset", ""))

	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
