package chirp

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LikeStatus reports the outcome of a like toggle.
type LikeStatus string

const (
	LikeStatusLiked   LikeStatus = "liked"
	LikeStatusUnliked LikeStatus = "unliked"
)

type Tweets interface {
	repository.Repository[*Tweet]

	Post(ctx context.Context, tweet *Tweet) (*Tweet, error)
	PostTx(ctx context.Context, tx bun.IDB, tweet *Tweet) (*Tweet, error)
	GetWithLikes(ctx context.Context, id uuid.UUID) (*Tweet, error)
	Remove(ctx context.Context, id uuid.UUID) error
	ToggleLike(ctx context.Context, tweetID, userID uuid.UUID) (LikeStatus, error)

	Timeline(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Tweet, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Tweet, error)
	Explore(ctx context.Context, limit int) ([]*Tweet, error)
}

type tweets struct {
	repository.Repository[*Tweet]
	db *bun.DB
}

var _ Tweets = (*tweets)(nil)

// defaultFeedLimit caps feed queries when the caller passes no limit.
const defaultFeedLimit = 50

func NewTweetsRepository(db *bun.DB) Tweets {
	repo := repository.NewRepository[*Tweet](db, repository.ModelHandlers[*Tweet]{
		NewRecord: func() *Tweet { return &Tweet{} },
		GetID: func(t *Tweet) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Tweet, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &tweets{
		Repository: repo,
		db:         db,
	}
}

func (r *tweets) Post(ctx context.Context, tweet *Tweet) (*Tweet, error) {
	return r.PostTx(ctx, r.db, tweet)
}

func (r *tweets) PostTx(ctx context.Context, tx bun.IDB, tweet *Tweet) (*Tweet, error) {
	if tweet.ID == uuid.Nil {
		tweet.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, tweet)
}

func (r *tweets) GetWithLikes(ctx context.Context, id uuid.UUID) (*Tweet, error) {
	record := &Tweet{}
	err := r.db.NewSelect().
		Model(record).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("tweet_likes", "tweet_id")).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

// Remove deletes the tweet along with its likes. Ownership is checked
// at the handler boundary, not here.
func (r *tweets) Remove(ctx context.Context, id uuid.UUID) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*TweetLike)(nil)).
			Where("tweet_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*Tweet)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrRecordNotFound
		}

		return nil
	})
}

// ToggleLike flips the (tweet, user) like edge: liking twice removes
// the like. The insert is conflict-tolerant so concurrent toggles
// cannot duplicate an edge.
func (r *tweets) ToggleLike(ctx context.Context, tweetID, userID uuid.UUID) (LikeStatus, error) {
	if _, err := r.Repository.GetByID(ctx, tweetID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrRecordNotFound
		}
		return "", err
	}

	edge := &TweetLike{
		TweetID: tweetID,
		UserID:  userID,
	}

	res, err := r.db.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return "", err
	}

	if affected, _ := res.RowsAffected(); affected > 0 {
		return LikeStatusLiked, nil
	}

	if _, err := r.db.NewDelete().
		Model((*TweetLike)(nil)).
		Where("tweet_id = ?", tweetID).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return "", err
	}

	return LikeStatusUnliked, nil
}

// Timeline returns the account's own tweets plus tweets from every
// followed account, newest first.
func (r *tweets) Timeline(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Tweet, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	var records []*Tweet
	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("tweet_likes", "tweet_id")).
		Where("?TableAlias.user_id = ? OR ?TableAlias.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *tweets) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Tweet, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	var records []*Tweet
	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("tweet_likes", "tweet_id")).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

// Explore surfaces the most liked tweets regardless of the social
// graph, most liked first with recency as the tie breaker.
func (r *tweets) Explore(ctx context.Context, limit int) ([]*Tweet, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	var records []*Tweet
	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("tweet_likes", "tweet_id")).
		OrderExpr("like_count DESC, created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func likeCountExpr(table, fk string) string {
	return "(SELECT COUNT(*) FROM " + table + " AS lk WHERE lk." + fk + " = ?TableAlias.id) AS like_count"
}
