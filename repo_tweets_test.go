package chirp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTweet(t *testing.T, repo Tweets, userID uuid.UUID, body string, createdAt time.Time) *Tweet {
	t.Helper()

	record, err := repo.Post(context.Background(), &Tweet{
		UserID:    userID,
		Body:      body,
		CreatedAt: &createdAt,
	})
	require.NoError(t, err)

	return record
}

func TestTweetsPostAndGet(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")

	record, err := mgr.Tweets().Post(ctx, &Tweet{UserID: alice.ID, Body: "hello world"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)

	found, err := mgr.Tweets().GetWithLikes(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", found.Body)
	assert.Equal(t, alice.ID, found.UserID)
	assert.Equal(t, 0, found.LikeCount)
}

func TestTweetsGetWithLikesNotFound(t *testing.T) {
	mgr := setupRepoManager(t)

	_, err := mgr.Tweets().GetWithLikes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTweetsToggleLike(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")
	bob := seedUser(t, mgr.Users(), "bob")

	tweet := seedTweet(t, mgr.Tweets(), alice.ID, "like me", time.Now())

	status, err := mgr.Tweets().ToggleLike(ctx, tweet.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeStatusLiked, status)

	found, err := mgr.Tweets().GetWithLikes(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.LikeCount)

	// toggling again removes the like
	status, err = mgr.Tweets().ToggleLike(ctx, tweet.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeStatusUnliked, status)

	found, err = mgr.Tweets().GetWithLikes(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.LikeCount)
}

func TestTweetsToggleLikeUnknownTweet(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	bob := seedUser(t, mgr.Users(), "bob")

	_, err := mgr.Tweets().ToggleLike(ctx, uuid.New(), bob.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTweetsRemove(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")
	bob := seedUser(t, mgr.Users(), "bob")

	tweet := seedTweet(t, mgr.Tweets(), alice.ID, "to be removed", time.Now())

	_, err := mgr.Tweets().ToggleLike(ctx, tweet.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, mgr.Tweets().Remove(ctx, tweet.ID))

	_, err = mgr.Tweets().GetWithLikes(ctx, tweet.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// removing again reports not found
	err = mgr.Tweets().Remove(ctx, tweet.ID)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTweetsTimeline(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")
	bob := seedUser(t, mgr.Users(), "bob")
	carol := seedUser(t, mgr.Users(), "carol")

	base := time.Now().Add(-time.Hour)

	own := seedTweet(t, mgr.Tweets(), alice.ID, "own tweet", base.Add(1*time.Minute))
	followed := seedTweet(t, mgr.Tweets(), bob.ID, "followed tweet", base.Add(2*time.Minute))
	seedTweet(t, mgr.Tweets(), carol.ID, "stranger tweet", base.Add(3*time.Minute))

	_, err := mgr.Users().Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	timeline, err := mgr.Tweets().Timeline(ctx, alice.ID, 0, 0)
	require.NoError(t, err)

	// own and followed tweets only, newest first
	require.Len(t, timeline, 2)
	assert.Equal(t, followed.ID, timeline[0].ID)
	assert.Equal(t, own.ID, timeline[1].ID)
}

func TestTweetsTimelinePagination(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedTweet(t, mgr.Tweets(), alice.ID, "tweet", base.Add(time.Duration(i)*time.Minute))
	}

	page, err := mgr.Tweets().Timeline(ctx, alice.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := mgr.Tweets().Timeline(ctx, alice.ID, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestTweetsListByUser(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")
	bob := seedUser(t, mgr.Users(), "bob")

	base := time.Now().Add(-time.Hour)
	seedTweet(t, mgr.Tweets(), alice.ID, "first", base.Add(1*time.Minute))
	seedTweet(t, mgr.Tweets(), alice.ID, "second", base.Add(2*time.Minute))
	seedTweet(t, mgr.Tweets(), bob.ID, "not alice", base.Add(3*time.Minute))

	records, err := mgr.Tweets().ListByUser(ctx, alice.ID, 0, 0)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Body)
	assert.Equal(t, "first", records[1].Body)
}

func TestTweetsExploreOrdersByLikes(t *testing.T) {
	mgr := setupRepoManager(t)
	ctx := context.Background()

	alice := seedUser(t, mgr.Users(), "alice")
	bob := seedUser(t, mgr.Users(), "bob")
	carol := seedUser(t, mgr.Users(), "carol")

	base := time.Now().Add(-time.Hour)

	quiet := seedTweet(t, mgr.Tweets(), alice.ID, "quiet", base.Add(1*time.Minute))
	popular := seedTweet(t, mgr.Tweets(), alice.ID, "popular", base.Add(2*time.Minute))

	_, err := mgr.Tweets().ToggleLike(ctx, popular.ID, bob.ID)
	require.NoError(t, err)
	_, err = mgr.Tweets().ToggleLike(ctx, popular.ID, carol.ID)
	require.NoError(t, err)
	_, err = mgr.Tweets().ToggleLike(ctx, quiet.ID, bob.ID)
	require.NoError(t, err)

	records, err := mgr.Tweets().Explore(ctx, 10)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, popular.ID, records[0].ID)
	assert.Equal(t, 2, records[0].LikeCount)
	assert.Equal(t, quiet.ID, records[1].ID)
	assert.Equal(t, 1, records[1].LikeCount)
}
