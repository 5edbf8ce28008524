package chirp

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestArticleController(t *testing.T) *ArticleController {
	t.Helper()

	return &ArticleController{
		Logger:       defLogger{},
		ErrorHandler: WriteError,
		Repo:         setupRepoManager(t),
		Config:       ctrlConfig{},
	}
}

func TestIngestArticleRequestValidate(t *testing.T) {
	valid := IngestArticleRequest{
		Title: "Breaking news",
		URL:   "https://example.com/breaking",
	}
	assert.Nil(t, valid.Validate())

	missingTitle := valid
	missingTitle.Title = ""
	require.NotNil(t, missingTitle.Validate())

	badURL := valid
	badURL.URL = "not a url"
	require.NotNil(t, badURL.Validate())

	badImage := valid
	badImage.ImageURL = "not a url"
	require.NotNil(t, badImage.Validate())
}

func TestCommentRequestValidate(t *testing.T) {
	assert.Nil(t, CommentRequest{Body: "nice"}.Validate())
	require.NotNil(t, CommentRequest{}.Validate())
	require.NotNil(t, CommentRequest{Body: strings.Repeat("a", 241)}.Validate())
}

func TestArticleControllerList(t *testing.T) {
	controller := newTestArticleController(t)

	alice := seedUser(t, controller.Repo.Users(), "alice")

	base := time.Now().Add(-time.Hour)
	seedArticle(t, controller.Repo.Articles(), "https://example.com/one", base.Add(time.Minute))
	seedArticle(t, controller.Repo.Articles(), "https://example.com/two", base.Add(2*time.Minute))

	ctx := authedCtx(alice.ID)

	var payload map[string]any
	ctx.On("JSON", http.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.List(ctx))

	articles, ok := payload["articles"].([]*Article)
	require.True(t, ok)
	assert.Len(t, articles, 2)
}

func TestArticleControllerShow(t *testing.T) {
	controller := newTestArticleController(t)

	alice := seedUser(t, controller.Repo.Users(), "alice")
	article := seedArticle(t, controller.Repo.Articles(), "https://example.com/story", time.Now())

	ctx := authedCtx(alice.ID)
	ctx.ParamsM["id"] = article.ID.String()

	var payload map[string]any
	ctx.On("JSON", http.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Show(ctx))

	record, ok := payload["article"].(*Article)
	require.True(t, ok)
	assert.Equal(t, article.ID, record.ID)
}

func TestArticleControllerToggleLike(t *testing.T) {
	controller := newTestArticleController(t)

	alice := seedUser(t, controller.Repo.Users(), "alice")
	article := seedArticle(t, controller.Repo.Articles(), "https://example.com/likeable", time.Now())

	like := func() LikeStatus {
		ctx := authedCtx(alice.ID)
		ctx.ParamsM["id"] = article.ID.String()

		var payload map[string]any
		ctx.On("JSON", http.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			payload = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, controller.ToggleLike(ctx))
		return payload["status"].(LikeStatus)
	}

	assert.Equal(t, LikeStatusLiked, like())
	assert.Equal(t, LikeStatusUnliked, like())
}

func TestArticleControllerDeleteComment(t *testing.T) {
	controller := newTestArticleController(t)

	alice := seedUser(t, controller.Repo.Users(), "alice")
	article := seedArticle(t, controller.Repo.Articles(), "https://example.com/discussed", time.Now())

	comment, err := controller.Repo.Articles().AddComment(context.Background(), &ArticleComment{
		ArticleID: article.ID,
		UserID:    alice.ID,
		Username:  alice.Username,
		Body:      "delete me",
	})
	require.NoError(t, err)

	ctx := authedCtx(alice.ID)
	ctx.ParamsM["commentID"] = comment.ID.String()

	var payload map[string]any
	ctx.On("JSON", http.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.DeleteComment(ctx))
	assert.Equal(t, true, payload["deleted"])

	_, err = controller.Repo.Articles().GetComment(context.Background(), comment.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestArticleControllerDeleteCommentNotOwner(t *testing.T) {
	controller := newTestArticleController(t)

	var handled error
	controller.ErrorHandler = func(ctx router.Context, err error) error {
		handled = err
		return nil
	}

	alice := seedUser(t, controller.Repo.Users(), "alice")
	bob := seedUser(t, controller.Repo.Users(), "bob")
	article := seedArticle(t, controller.Repo.Articles(), "https://example.com/moderated", time.Now())

	comment, err := controller.Repo.Articles().AddComment(context.Background(), &ArticleComment{
		ArticleID: article.ID,
		UserID:    alice.ID,
		Username:  alice.Username,
		Body:      "not yours to delete",
	})
	require.NoError(t, err)

	ctx := authedCtx(bob.ID)
	ctx.ParamsM["commentID"] = comment.ID.String()

	require.NoError(t, controller.DeleteComment(ctx))
	assert.ErrorIs(t, handled, ErrNotResourceOwner)

	// the comment is untouched
	_, err = controller.Repo.Articles().GetComment(context.Background(), comment.ID)
	assert.NoError(t, err)
}
