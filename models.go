package chirp

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	ProfilePicture string     `bun:"profile_picture" json:"profile_picture,omitempty"`
	Description    string     `bun:"description" json:"description,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"-"`
	Followers      []*User    `bun:"m2m:follows,join:Followee=Follower" json:"followers,omitempty"`
	Following      []*User    `bun:"m2m:follows,join:Follower=Followee" json:"following,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Follow is one directed edge of the social graph. The pair is the
// primary key so the relation cannot be duplicated, and an account is
// never allowed to appear on both sides of the same row.
type Follow struct {
	bun.BaseModel `bun:"table:follows,alias:flw"`
	FollowerID    uuid.UUID  `bun:"follower_id,pk,type:uuid" json:"follower_id"`
	Follower      *User      `bun:"rel:belongs-to,join:follower_id=id" json:"-"`
	FolloweeID    uuid.UUID  `bun:"followee_id,pk,type:uuid" json:"followee_id"`
	Followee      *User      `bun:"rel:belongs-to,join:followee_id=id" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Tweet is a short post owned by exactly one account
type Tweet struct {
	bun.BaseModel `bun:"table:tweets,alias:twt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Body          string     `bun:"body,notnull" json:"body"`
	LikeCount     int        `bun:"like_count,scanonly" json:"like_count"`
	Likes         []*User    `bun:"m2m:tweet_likes,join:Tweet=User" json:"likes,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TweetLike is the likes join row for tweets
type TweetLike struct {
	bun.BaseModel `bun:"table:tweet_likes,alias:twl"`
	TweetID       uuid.UUID  `bun:"tweet_id,pk,type:uuid" json:"tweet_id"`
	Tweet         *Tweet     `bun:"rel:belongs-to,join:tweet_id=id" json:"-"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Article is an ingested news item. URL is the natural key used by the
// ingest upsert so repeated fetches never duplicate an article.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:art"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string            `bun:"title,notnull" json:"title"`
	Description   string            `bun:"description" json:"description,omitempty"`
	Content       string            `bun:"content" json:"content,omitempty"`
	URL           string            `bun:"url,notnull,unique" json:"url"`
	ImageURL      string            `bun:"image_url" json:"image_url,omitempty"`
	SourceID      string            `bun:"source_id" json:"source_id,omitempty"`
	SourceName    string            `bun:"source_name" json:"source_name,omitempty"`
	PublishedAt   *time.Time        `bun:"published_at,nullzero" json:"published_at,omitempty"`
	LikeCount     int               `bun:"like_count,scanonly" json:"like_count"`
	Likes         []*User           `bun:"m2m:article_likes,join:Article=User" json:"likes,omitempty"`
	Comments      []*ArticleComment `bun:"rel:has-many,join:id=article_id" json:"comments,omitempty"`
	CreatedAt     *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ArticleLike is the likes join row for articles
type ArticleLike struct {
	bun.BaseModel `bun:"table:article_likes,alias:arl"`
	ArticleID     uuid.UUID  `bun:"article_id,pk,type:uuid" json:"article_id"`
	Article       *Article   `bun:"rel:belongs-to,join:article_id=id" json:"-"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// ArticleComment is a comment on an article. Username is a snapshot of
// the author's handle at comment time, matching the feed's display
// needs without a join.
type ArticleComment struct {
	bun.BaseModel `bun:"table:article_comments,alias:arc"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ArticleID     uuid.UUID   `bun:"article_id,notnull,type:uuid" json:"article_id"`
	Article       *Article    `bun:"rel:belongs-to,join:article_id=id" json:"-"`
	UserID        uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"user_id"`
	User          *User       `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Username      string      `bun:"username,notnull" json:"username"`
	Body          string      `bun:"body,notnull" json:"body"`
	EditHistory   []time.Time `bun:"edit_history" json:"edit_history,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PublicProfile is the client-facing projection of a User. It is built
// deterministically from the record, never by stripping fields ad hoc,
// so the password hash cannot leak through serialization changes.
type PublicProfile struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	Role           UserRole   `json:"role"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	Description    string     `json:"description,omitempty"`
	FollowerCount  int        `json:"follower_count"`
	FollowingCount int        `json:"following_count"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// PublicProfile returns the public projection of the user
func (u *User) PublicProfile() *PublicProfile {
	if u == nil {
		return nil
	}
	return &PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		Description:    u.Description,
		FollowerCount:  len(u.Followers),
		FollowingCount: len(u.Following),
		CreatedAt:      u.CreatedAt,
	}
}
