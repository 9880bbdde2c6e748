// Package store defines the persistence contract shared by the sqlite and
// mongo backends. Users (with the follow graph) and posts (with their likes
// and comments) are the two aggregates; nothing outside a backend sees how
// they are laid out.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
)

var (
	ErrNotFound         = errors.New("store: not found")
	ErrDuplicate        = errors.New("store: duplicate key")
	ErrAlreadyFollowing = errors.New("store: follow edge exists")
	ErrNotFollowing     = errors.New("store: follow edge missing")
)

// ProfileUpdate carries the profile fields to overwrite. Nil fields are left untouched.
type ProfileUpdate struct {
	Bio        *string
	ProfileImg *string
	CoverImg   *string
}

// PostUpdate carries the post fields to overwrite. Nil fields are left untouched;
// a pointer to "" clears the field.
type PostUpdate struct {
	Text      *string
	Image     *string
	Video     *string
	UpdatedAt time.Time
}

// UserStore owns user documents and the follow graph.
type UserStore interface {
	// CreateUser inserts u. It returns ErrDuplicate when the username or email is taken.
	CreateUser(ctx context.Context, u models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	// GetUserSummaries resolves ids to their public projection. Unknown ids are absent from the map.
	GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error
	// Follow records followerID -> followeeID on both sides atomically.
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
}

// PostStore owns post documents, their like sets and their embedded comments.
type PostStore interface {
	CreatePost(ctx context.Context, p models.Post) error
	GetPost(ctx context.Context, id string) (models.Post, error)
	// ListPosts returns every post, newest first.
	ListPosts(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, upd PostUpdate) error
	DeletePost(ctx context.Context, id string) error
	// AddLike and RemoveLike are atomic set operations and are no-ops when
	// the membership already matches.
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	AddComment(ctx context.Context, postID string, c models.Comment) error
	UpdateCommentText(ctx context.Context, postID, commentID, text string) error
}

// EventStore persists the activity log.
type EventStore interface {
	CreateEvent(ctx context.Context, e models.Event) error
	GetEventsForActor(ctx context.Context, actorID string, limit int) ([]models.Event, error)
	// PruneEvents deletes events created before cutoff and returns how many were removed.
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store bundles the backends one process runs on.
type Store interface {
	UserStore
	PostStore
	EventStore
	Close(ctx context.Context) error
}
