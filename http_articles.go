package chirp

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// commentBodyMaxLen caps article comment length.
const commentBodyMaxLen = 240

// RegisterArticleRoutes mounts news article routes. Reading and
// commenting require a session; ingesting articles requires the admin
// role, which adminOnly is expected to enforce.
func RegisterArticleRoutes[T any](app router.Router[T], protected, adminOnly router.MiddlewareFunc, opts ...ArticleControllerOption) {
	controller := NewArticleController(opts...)

	app.Post("/articles", controller.Ingest, adminOnly).
		SetName("articles.ingest")

	app.Get("/articles", controller.List, protected).
		SetName("articles.list")

	app.Get("/articles/:id", controller.Show, protected).
		SetName("articles.show")

	app.Post("/articles/:id/like", controller.ToggleLike, protected).
		SetName("articles.like")

	app.Post("/articles/:id/comments", controller.AddComment, protected).
		SetName("articles.comments.add")

	app.Put("/articles/:id/comments/:commentID", controller.EditComment, protected).
		SetName("articles.comments.edit")

	app.Delete("/articles/:id/comments/:commentID", controller.DeleteComment, protected).
		SetName("articles.comments.delete")
}

type ArticleController struct {
	Logger       Logger
	Repo         RepositoryManager
	Config       Config
	ErrorHandler router.ErrorHandler
}

type ArticleControllerOption func(*ArticleController) *ArticleController

func NewArticleController(opts ...ArticleControllerOption) *ArticleController {
	c := &ArticleController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in article controller...")
	}

	if c.Config == nil {
		panic("Missing Config in article controller...")
	}

	return c
}

func (a *ArticleController) WithLogger(logger Logger) *ArticleController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// IngestArticleRequest payload
type IngestArticleRequest struct {
	Title       string     `form:"title" json:"title"`
	Description string     `form:"description" json:"description"`
	Content     string     `form:"content" json:"content"`
	URL         string     `form:"url" json:"url"`
	SourceID    string     `form:"source_id" json:"source_id"`
	SourceName  string     `form:"source_name" json:"source_name"`
	ImageURL    string     `form:"image_url" json:"image_url"`
	PublishedAt *time.Time `form:"published_at" json:"published_at"`
}

// Validate will run validation rules
func (r IngestArticleRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Title, validation.Required, validation.Length(1, 300)),
			validation.Field(&r.URL, validation.Required, is.URL),
			validation.Field(&r.ImageURL, is.URL),
			validation.Field(&r.SourceName, validation.Length(0, 100)),
		)
	}, "Invalid article payload")
}

// Ingest upserts an article by URL, so re-running an import refreshes
// editorial fields without duplicating rows.
func (a *ArticleController) Ingest(ctx router.Context) error {
	payload := new(IngestArticleRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse article payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	publishedAt := time.Now()
	if payload.PublishedAt != nil {
		publishedAt = *payload.PublishedAt
	}

	article := &Article{
		Title:       payload.Title,
		Description: payload.Description,
		Content:     payload.Content,
		URL:         payload.URL,
		SourceID:    payload.SourceID,
		SourceName:  payload.SourceName,
		ImageURL:    payload.ImageURL,
		PublishedAt: &publishedAt,
	}

	record, err := a.Repo.Articles().Ingest(ctx.Context(), article)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"article": record,
	})
}

func (a *ArticleController) List(ctx router.Context) error {
	limit, offset := paginationParams(ctx)

	records, err := a.Repo.Articles().ListRecent(ctx.Context(), limit, offset)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"articles": records,
	})
}

func (a *ArticleController) Show(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid article id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	record, err := a.Repo.Articles().GetWithComments(ctx.Context(), id)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"article": record,
	})
}

func (a *ArticleController) ToggleLike(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid article id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	status, err := a.Repo.Articles().ToggleLike(ctx.Context(), id, callerID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": status,
	})
}

// CommentRequest payload
type CommentRequest struct {
	Body string `form:"body" json:"body"`
}

// Validate will run validation rules
func (r CommentRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Body, validation.Required, validation.Length(1, commentBodyMaxLen)),
		)
	}, "Invalid comment payload")
}

func (a *ArticleController) AddComment(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	articleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid article id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	payload := new(CommentRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse comment payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// snapshot the username so comments survive profile renames
	user, err := a.Repo.Users().GetByID(ctx.Context(), callerID.String())
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	comment := &ArticleComment{
		ArticleID: articleID,
		UserID:    callerID,
		Username:  user.Username,
		Body:      payload.Body,
	}

	record, err := a.Repo.Articles().AddComment(ctx.Context(), comment)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"comment": record,
	})
}

// EditComment replaces a comment body. Only the author may edit, and
// every edit is recorded in the comment's history.
func (a *ArticleController) EditComment(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	commentID, err := uuid.Parse(ctx.Param("commentID"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid comment id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	payload := new(CommentRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "Unable to parse comment payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	comment, err := a.Repo.Articles().GetComment(ctx.Context(), commentID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	if err := RequireOwner(callerID, comment.UserID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	record, err := a.Repo.Articles().EditComment(ctx.Context(), comment, payload.Body)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"comment": record,
	})
}

func (a *ArticleController) DeleteComment(ctx router.Context) error {
	callerID, err := CallerID(ctx, a.Config.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	commentID, err := uuid.Parse(ctx.Param("commentID"))
	if err != nil {
		return a.ErrorHandler(ctx, errors.New("invalid comment id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	comment, err := a.Repo.Articles().GetComment(ctx.Context(), commentID)
	if err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	if err := RequireOwner(callerID, comment.UserID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Repo.Articles().RemoveComment(ctx.Context(), commentID); err != nil {
		return a.ErrorHandler(ctx, translateNotFound(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"deleted": true,
	})
}
