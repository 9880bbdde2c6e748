package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/opensocial-be/internal/media"
	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
)

// NewPost is the content of a post being created.
type NewPost struct {
	Text  string
	Image *media.File
	Video *media.File
}

// PostEdit describes changes to an existing post. A file replaces the
// current media; Clear* empties it; neither leaves it alone.
type PostEdit struct {
	Text       *string
	Image      *media.File
	Video      *media.File
	ClearImage bool
	ClearVideo bool
	// MediaURL is set when image or video arrived as a URL string rather
	// than a file. The edit is rejected once ownership is established.
	MediaURL bool
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	List(ctx context.Context) ([]models.PostView, error)
	Get(ctx context.Context, id string) (models.PostView, error)
	Create(ctx context.Context, actorID string, in NewPost) (models.PostView, error)
	Edit(ctx context.Context, actorID, postID string, in PostEdit) (models.PostView, error)
	Delete(ctx context.Context, actorID, postID string) error
	ToggleLike(ctx context.Context, actorID, postID string) (bool, error)
	AddComment(ctx context.Context, actorID, postID, text string) (models.PostView, error)
	EditComment(ctx context.Context, actorID, postID, commentID, text string) (models.PostView, error)
}

// PostService owns posts, their likes and their comments.
type PostService struct {
	posts  store.PostStore
	users  store.UserStore
	media  Uploader
	events EventServiceProvider
}

// NewPostService creates a new PostService.
func NewPostService(posts store.PostStore, users store.UserStore, uploader Uploader, events EventServiceProvider) *PostService {
	return &PostService{posts: posts, users: users, media: uploader, events: events}
}

// List returns every post, newest first, with authors filled in.
func (s *PostService) List(ctx context.Context) ([]models.PostView, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.hydrate(ctx, posts)
}

// Get returns a single post with authors filled in.
func (s *PostService) Get(ctx context.Context, id string) (models.PostView, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return models.PostView{}, err
	}
	return s.hydrateOne(ctx, post)
}

// Create validates the content, uploads any media and stores the post.
// Nothing is uploaded for a post that would be rejected.
func (s *PostService) Create(ctx context.Context, actorID string, in NewPost) (models.PostView, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Image == nil && in.Video == nil {
		return models.PostView{}, validation("Post must have text or image")
	}

	assets, err := s.upload(ctx, in.Image, in.Video)
	if err != nil {
		return models.PostView{}, err
	}

	now := time.Now()
	post := models.Post{
		ID:        uuid.New().String(),
		UserID:    actorID,
		Text:      text,
		Image:     assets["image"].URL,
		Video:     assets["video"].URL,
		Likes:     []string{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.media.Discard(context.WithoutCancel(ctx), assetList(assets)...)
		return models.PostView{}, fmt.Errorf("create post: %w", err)
	}

	s.events.Record(ctx, EventPostCreate, actorID, post.ID, "created a post")
	return s.hydrateOne(ctx, post)
}

// Edit changes the text or media of a post owned by actorID.
func (s *PostService) Edit(ctx context.Context, actorID, postID string, in PostEdit) (models.PostView, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return models.PostView{}, err
	}
	if post.UserID != actorID {
		return models.PostView{}, forbidden("User not authorized")
	}
	if in.MediaURL {
		return models.PostView{}, validation("Media must be uploaded as a file")
	}

	assets, err := s.upload(ctx, in.Image, in.Video)
	if err != nil {
		return models.PostView{}, err
	}

	upd := store.PostUpdate{UpdatedAt: time.Now()}
	if in.Text != nil {
		text := strings.TrimSpace(*in.Text)
		upd.Text = &text
	}
	upd.Image = mediaChange(assets, "image", in.ClearImage)
	upd.Video = mediaChange(assets, "video", in.ClearVideo)

	if err := s.posts.UpdatePost(ctx, postID, upd); err != nil {
		s.media.Discard(context.WithoutCancel(ctx), assetList(assets)...)
		if errors.Is(err, store.ErrNotFound) {
			return models.PostView{}, notFound("Post not found")
		}
		return models.PostView{}, fmt.Errorf("update post: %w", err)
	}

	s.events.Record(ctx, EventPostEdit, actorID, postID, "edited a post")
	return s.Get(ctx, postID)
}

// Delete removes a post owned by actorID along with its comments and likes.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	post, err := s.load(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return forbidden("User not authorized")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("Post not found")
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.events.Record(ctx, EventPostDelete, actorID, postID, "deleted a post")
	return nil
}

// ToggleLike likes the post if actorID has not yet, and unlikes it otherwise.
// It reports whether the post is liked afterwards.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID string) (bool, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return false, err
	}

	liked := !post.LikedBy(actorID)
	if liked {
		err = s.posts.AddLike(ctx, postID, actorID)
	} else {
		err = s.posts.RemoveLike(ctx, postID, actorID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, notFound("Post not found")
	}
	if err != nil {
		return false, fmt.Errorf("toggle like: %w", err)
	}
	return liked, nil
}

// AddComment appends a comment by actorID to the post.
func (s *PostService) AddComment(ctx context.Context, actorID, postID, text string) (models.PostView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PostView{}, validation("Text is required")
	}

	comment := models.Comment{
		ID:        uuid.New().String(),
		UserID:    actorID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	err := s.posts.AddComment(ctx, postID, comment)
	if errors.Is(err, store.ErrNotFound) {
		return models.PostView{}, notFound("Post not found")
	}
	if err != nil {
		return models.PostView{}, fmt.Errorf("add comment: %w", err)
	}

	s.events.Record(ctx, EventCommentCreate, actorID, postID, "commented on a post")
	return s.Get(ctx, postID)
}

// EditComment replaces the text of a comment written by actorID. Only the
// author gets to learn whether the new text is acceptable.
func (s *PostService) EditComment(ctx context.Context, actorID, postID, commentID, text string) (models.PostView, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return models.PostView{}, err
	}
	comment, ok := post.Comment(commentID)
	if !ok {
		return models.PostView{}, notFound("Comment not found")
	}
	if comment.UserID != actorID {
		return models.PostView{}, forbidden("User not authorized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.PostView{}, validation("Text is required")
	}

	if err := s.posts.UpdateCommentText(ctx, postID, commentID, text); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PostView{}, notFound("Comment not found")
		}
		return models.PostView{}, fmt.Errorf("edit comment: %w", err)
	}
	return s.Get(ctx, postID)
}

func (s *PostService) load(ctx context.Context, id string) (models.Post, error) {
	post, err := s.posts.GetPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Post{}, notFound("Post not found")
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

func (s *PostService) upload(ctx context.Context, image, video *media.File) (map[string]media.Asset, error) {
	reqs := map[string]media.Request{}
	if image != nil {
		reqs["image"] = media.Request{Kind: media.KindImage, File: *image}
	}
	if video != nil {
		reqs["video"] = media.Request{Kind: media.KindVideo, File: *video}
	}
	if len(reqs) == 0 {
		return map[string]media.Asset{}, nil
	}
	assets, err := s.media.UploadSet(ctx, reqs)
	if err != nil {
		return nil, uploadError(err)
	}
	return assets, nil
}

func mediaChange(assets map[string]media.Asset, slot string, cleared bool) *string {
	if a, ok := assets[slot]; ok {
		return &a.URL
	}
	if cleared {
		empty := ""
		return &empty
	}
	return nil
}
