package chirp

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Articles interface {
	repository.Repository[*Article]

	Ingest(ctx context.Context, article *Article) (*Article, error)
	IngestTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*Article, error)
	GetWithComments(ctx context.Context, id uuid.UUID) (*Article, error)
	ToggleLike(ctx context.Context, articleID, userID uuid.UUID) (LikeStatus, error)

	AddComment(ctx context.Context, comment *ArticleComment) (*ArticleComment, error)
	GetComment(ctx context.Context, commentID uuid.UUID) (*ArticleComment, error)
	EditComment(ctx context.Context, comment *ArticleComment, body string) (*ArticleComment, error)
	RemoveComment(ctx context.Context, commentID uuid.UUID) error
}

type articles struct {
	repository.Repository[*Article]
	db *bun.DB
}

var _ Articles = (*articles)(nil)

func NewArticlesRepository(db *bun.DB) Articles {
	repo := repository.NewRepository[*Article](db, repository.ModelHandlers[*Article]{
		NewRecord: func() *Article { return &Article{} },
		GetID: func(a *Article) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Article, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &articles{
		Repository: repo,
		db:         db,
	}
}

func (r *articles) Ingest(ctx context.Context, article *Article) (*Article, error) {
	return r.IngestTx(ctx, r.db, article)
}

// IngestTx upserts an article keyed by URL. Re-ingesting the same URL
// refreshes the editorial fields but keeps the row identity, so likes
// and comments survive a refresh.
func (r *articles) IngestTx(ctx context.Context, tx bun.IDB, article *Article) (*Article, error) {
	if article.ID == uuid.Nil {
		// the URL is the natural key, so derive a stable ID from it
		if id, err := hashid.NewUUID(article.URL); err == nil {
			article.ID = id
		} else {
			article.ID = uuid.New()
		}
	}

	_, err := tx.NewInsert().
		Model(article).
		On("CONFLICT (url) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("content = EXCLUDED.content").
		Set("source_id = EXCLUDED.source_id").
		Set("source_name = EXCLUDED.source_name").
		Set("image_url = EXCLUDED.image_url").
		Set("published_at = EXCLUDED.published_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	record := &Article{}
	if err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.url = ?", article.URL).
		Limit(1).
		Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *articles) ListRecent(ctx context.Context, limit, offset int) ([]*Article, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	var records []*Article
	err := r.db.NewSelect().
		Model(&records).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("article_likes", "article_id")).
		Order("published_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *articles) GetWithComments(ctx context.Context, id uuid.UUID) (*Article, error) {
	record := &Article{}
	err := r.db.NewSelect().
		Model(record).
		ColumnExpr("?TableAlias.*").
		ColumnExpr(likeCountExpr("article_likes", "article_id")).
		Relation("Comments").
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

func (r *articles) ToggleLike(ctx context.Context, articleID, userID uuid.UUID) (LikeStatus, error) {
	if _, err := r.Repository.GetByID(ctx, articleID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrRecordNotFound
		}
		return "", err
	}

	edge := &ArticleLike{
		ArticleID: articleID,
		UserID:    userID,
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
		Model((*ArticleLike)(nil)).
		Where("article_id = ?", articleID).
		Where("user_id = ?", userID).
		Exec(ctx); err != nil {
		return "", err
	}

	return LikeStatusUnliked, nil
}

func (r *articles) AddComment(ctx context.Context, comment *ArticleComment) (*ArticleComment, error) {
	if _, err := r.Repository.GetByID(ctx, comment.ArticleID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().
		Model(comment).
		Exec(ctx); err != nil {
		return nil, err
	}

	return comment, nil
}

func (r *articles) GetComment(ctx context.Context, commentID uuid.UUID) (*ArticleComment, error) {
	record := &ArticleComment{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", commentID).
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

// EditComment replaces the body and appends the edit timestamp to the
// comment's history. Ownership is the handler's concern.
func (r *articles) EditComment(ctx context.Context, comment *ArticleComment, body string) (*ArticleComment, error) {
	comment.Body = body
	comment.EditHistory = append(comment.EditHistory, time.Now())

	_, err := r.db.NewUpdate().
		Model(comment).
		Column("body", "edit_history").
		Where("id = ?", comment.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func (r *articles) RemoveComment(ctx context.Context, commentID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*ArticleComment)(nil)).
		Where("id = ?", commentID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
