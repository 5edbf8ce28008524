package chirp

import (
	"context"
	"database/sql"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FollowStatus reports the outcome of a follow/unfollow toggle. The
// operations are idempotent per (follower, followee) pair; repeating
// one reports the current state instead of erroring or duplicating.
type FollowStatus string

const (
	FollowStatusFollowing        FollowStatus = "following"
	FollowStatusAlreadyFollowing FollowStatus = "already-following"
	FollowStatusUnfollowed       FollowStatus = "unfollowed"
	FollowStatusNotFollowing     FollowStatus = "not-following"
)

type Users interface {
	repository.Repository[*User]

	GetProfile(ctx context.Context, id uuid.UUID) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	UpdateProfile(ctx context.Context, record *User) (*User, error)

	Follow(ctx context.Context, followerID, followeeID uuid.UUID) (FollowStatus, error)
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (FollowStatus, error)
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)

	DeleteAccount(ctx context.Context, id uuid.UUID) error
	DeleteAccountTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

// GetProfile loads a user with the follower/following edges needed to
// build the public projection.
func (a *users) GetProfile(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Followers").
		Relation("Following").
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

// UpdateProfile persists profile fields, skipping zero values so a
// partial payload cannot blank out unrelated columns.
func (a *users) UpdateProfile(ctx context.Context, record *User) (*User, error) {
	return a.Repository.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateSkipZeroValues(),
	)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: Updating using the ORM fails due to a bug, it wont reset
	// login_attempt_at, login_attempts fields.
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

// Follow adds a directed edge. Following an account you already follow
// is a no-op that reports the existing state.
func (a *users) Follow(ctx context.Context, followerID, followeeID uuid.UUID) (FollowStatus, error) {
	if followerID == followeeID {
		return "", ErrSelfFollow
	}

	if _, err := a.Repository.GetByID(ctx, followeeID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrRecordNotFound
		}
		return "", err
	}

	edge := &Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
	}

	res, err := a.db.NewInsert().
		Model(edge).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return "", err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return FollowStatusAlreadyFollowing, nil
	}

	return FollowStatusFollowing, nil
}

// Unfollow removes the edge if present; unfollowing an account you do
// not follow reports not-following instead of erroring.
func (a *users) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (FollowStatus, error) {
	if followerID == followeeID {
		return "", ErrSelfFollow
	}

	res, err := a.db.NewDelete().
		Model((*Follow)(nil)).
		Where("follower_id = ?", followerID).
		Where("followee_id = ?", followeeID).
		Exec(ctx)
	if err != nil {
		return "", err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return FollowStatusNotFollowing, nil
	}

	return FollowStatusUnfollowed, nil
}

func (a *users) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	return a.db.NewSelect().
		Model((*Follow)(nil)).
		Where("follower_id = ?", followerID).
		Where("followee_id = ?", followeeID).
		Exists(ctx)
}

func (a *users) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return a.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return a.DeleteAccountTx(ctx, tx, id)
	})
}

// DeleteAccountTx removes the account and everything it owns in one
// transaction: tweets and their likes, likes the account placed,
// follow edges in both directions, and article comments. The store
// gives us no cross-entity cascade, so every step is explicit.
func (a *users) DeleteAccountTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := tx.NewDelete().
		Model((*TweetLike)(nil)).
		Where("tweet_id IN (SELECT id FROM tweets WHERE user_id = ?)", id).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*TweetLike)(nil)).
		Where("user_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*Tweet)(nil)).
		Where("user_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*Follow)(nil)).
		Where("follower_id = ? OR followee_id = ?", id, id).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*ArticleLike)(nil)).
		Where("user_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := tx.NewDelete().
		Model((*ArticleComment)(nil)).
		Where("user_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
