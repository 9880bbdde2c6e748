package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/opensocial-be/internal/database"
	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := New(db)
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func seedUser(t *testing.T, s *Store, id, name string) models.User {
	t.Helper()
	u := models.User{
		ID:           id,
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func seedPost(t *testing.T, s *Store, id, userID, text string, at time.Time) {
	t.Helper()
	p := models.Post{ID: id, UserID: userID, Text: text, CreatedAt: at, UpdatedAt: at}
	if err := s.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post %s: %v", id, err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	dup := models.User{ID: "u2", Username: "alice", Email: "other@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate username: got %v, want ErrDuplicate", err)
	}
	dup = models.User{ID: "u3", Username: "bob", Email: "alice@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}
}

func TestGetUserLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	for name, get := range map[string]func() (models.User, error){
		"id":       func() (models.User, error) { return s.GetUserByID(ctx, "u1") },
		"email":    func() (models.User, error) { return s.GetUserByEmail(ctx, "alice@example.com") },
		"username": func() (models.User, error) { return s.GetUserByUsername(ctx, "alice") },
	} {
		u, err := get()
		if err != nil {
			t.Fatalf("by %s: %v", name, err)
		}
		if u.ID != "u1" || u.PasswordHash != "hash" {
			t.Errorf("by %s: got %+v", name, u)
		}
		if u.Followers == nil || u.Following == nil {
			t.Errorf("by %s: follow lists must be non-nil", name)
		}
	}

	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "alice")

	bio, img := "hello", "http://media/profile/a.png"
	if err := s.UpdateProfile(ctx, "u1", store.ProfileUpdate{Bio: &bio, ProfileImg: &img}); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, _ := s.GetUserByID(ctx, "u1")
	if u.Bio != bio || u.ProfileImg != img || u.CoverImg != "" {
		t.Fatalf("unexpected profile: %+v", u)
	}

	if err := s.UpdateProfile(ctx, "u1", store.ProfileUpdate{}); err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if err := s.UpdateProfile(ctx, "missing", store.ProfileUpdate{Bio: &bio}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
	if err := s.UpdateProfile(ctx, "missing", store.ProfileUpdate{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing user, empty update: got %v, want ErrNotFound", err)
	}
}

func TestFollowIsSymmetric(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	seedUser(t, s, "b", "bob")

	if err := s.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := s.Follow(ctx, "a", "b"); !errors.Is(err, store.ErrAlreadyFollowing) {
		t.Fatalf("second follow: got %v, want ErrAlreadyFollowing", err)
	}

	a, _ := s.GetUserByID(ctx, "a")
	b, _ := s.GetUserByID(ctx, "b")
	if len(a.Following) != 1 || a.Following[0] != "b" || len(a.Followers) != 0 {
		t.Fatalf("alice edges: %+v / %+v", a.Following, a.Followers)
	}
	if len(b.Followers) != 1 || b.Followers[0] != "a" || len(b.Following) != 0 {
		t.Fatalf("bob edges: %+v / %+v", b.Followers, b.Following)
	}

	if err := s.Unfollow(ctx, "a", "b"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if err := s.Unfollow(ctx, "a", "b"); !errors.Is(err, store.ErrNotFollowing) {
		t.Fatalf("second unfollow: got %v, want ErrNotFollowing", err)
	}
	a, _ = s.GetUserByID(ctx, "a")
	b, _ = s.GetUserByID(ctx, "b")
	if len(a.Following) != 0 || len(b.Followers) != 0 {
		t.Fatalf("edges left after unfollow: %+v / %+v", a.Following, b.Followers)
	}

	if err := s.Follow(ctx, "a", "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("follow unknown user: got %v, want ErrNotFound", err)
	}
}

func TestUserSummaries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	seedUser(t, s, "b", "bob")

	got, err := s.GetUserSummaries(ctx, []string{"a", "b", "ghost"})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(got) != 2 || got["a"].Username != "alice" || got["b"].Username != "bob" {
		t.Fatalf("unexpected summaries: %+v", got)
	}

	empty, err := s.GetUserSummaries(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty batch: %v %v", empty, err)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")

	base := time.Now()
	seedPost(t, s, "p1", "a", "first", base)
	seedPost(t, s, "p2", "a", "second", base.Add(time.Second))
	seedPost(t, s, "p3", "a", "third", base.Add(time.Second)) // same instant as p2

	if err := s.AddLike(ctx, "p1", "a"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := s.AddComment(ctx, "p1", models.Comment{ID: "c1", UserID: "a", Text: "hi", CreatedAt: base}); err != nil {
		t.Fatalf("comment: %v", err)
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if len(ids) != 3 || ids[0] != "p3" || ids[1] != "p2" || ids[2] != "p1" {
		t.Fatalf("order = %v, want [p3 p2 p1]", ids)
	}
	if len(posts[2].Likes) != 1 || len(posts[2].Comments) != 1 || posts[2].Comments[0].Text != "hi" {
		t.Fatalf("p1 children not loaded: %+v", posts[2])
	}
	if posts[0].Likes == nil || posts[0].Comments == nil {
		t.Fatalf("empty children must be non-nil")
	}
}

func TestLikesAreASet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	seedPost(t, s, "p1", "a", "post", time.Now())

	for i := 0; i < 2; i++ {
		if err := s.AddLike(ctx, "p1", "a"); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}
	p, _ := s.GetPost(ctx, "p1")
	if len(p.Likes) != 1 || !p.LikedBy("a") {
		t.Fatalf("likes = %v, want [a]", p.Likes)
	}

	if err := s.RemoveLike(ctx, "p1", "a"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if err := s.RemoveLike(ctx, "p1", "a"); err != nil {
		t.Fatalf("second unlike: %v", err)
	}
	p, _ = s.GetPost(ctx, "p1")
	if len(p.Likes) != 0 {
		t.Fatalf("likes = %v, want empty", p.Likes)
	}

	if err := s.AddLike(ctx, "missing", "a"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("like missing post: got %v, want ErrNotFound", err)
	}
}

func TestUpdatePostAndComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	created := time.Now().Add(-time.Hour)
	p := models.Post{ID: "p1", UserID: "a", Text: "old", Image: "http://media/image/x.png", CreatedAt: created, UpdatedAt: created}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	text, clear := "new", ""
	now := time.Now()
	if err := s.UpdatePost(ctx, "p1", store.PostUpdate{Text: &text, Image: &clear, UpdatedAt: now}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetPost(ctx, "p1")
	if got.Text != "new" || got.Image != "" || !got.UpdatedAt.Equal(now.UTC()) {
		t.Fatalf("unexpected post after update: %+v", got)
	}
	if !got.CreatedAt.Equal(created.UTC()) {
		t.Fatalf("createdAt changed: %v", got.CreatedAt)
	}

	if err := s.UpdatePost(ctx, "missing", store.PostUpdate{Text: &text, UpdatedAt: now}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: got %v, want ErrNotFound", err)
	}

	for _, c := range []models.Comment{
		{ID: "c1", UserID: "a", Text: "one", CreatedAt: now},
		{ID: "c2", UserID: "a", Text: "two", CreatedAt: now},
	} {
		if err := s.AddComment(ctx, "p1", c); err != nil {
			t.Fatalf("comment %s: %v", c.ID, err)
		}
	}
	if err := s.UpdateCommentText(ctx, "p1", "c1", "edited"); err != nil {
		t.Fatalf("edit comment: %v", err)
	}
	if err := s.UpdateCommentText(ctx, "p1", "nope", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("edit missing comment: got %v, want ErrNotFound", err)
	}
	if err := s.AddComment(ctx, "missing", models.Comment{ID: "c3", UserID: "a", Text: "x", CreatedAt: now}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("comment missing post: got %v, want ErrNotFound", err)
	}

	got, _ = s.GetPost(ctx, "p1")
	if len(got.Comments) != 2 || got.Comments[0].Text != "edited" || got.Comments[1].Text != "two" {
		t.Fatalf("unexpected comments: %+v", got.Comments)
	}
}

func TestDeletePostRemovesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	seedPost(t, s, "p1", "a", "post", time.Now())
	_ = s.AddLike(ctx, "p1", "a")
	_ = s.AddComment(ctx, "p1", models.Comment{ID: "c1", UserID: "a", Text: "hi", CreatedAt: time.Now()})

	if err := s.DeletePost(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPost(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM post_likes"); err != nil || n != 0 {
		t.Fatalf("likes left: %d %v", n, err)
	}
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM post_comments"); err != nil || n != 0 {
		t.Fatalf("comments left: %d %v", n, err)
	}
	if err := s.DeletePost(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, at := range []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Minute), now} {
		e := models.Event{ID: string(rune('a' + i)), Type: "post.create", ActorID: "u1", Message: "m", CreatedAt: at}
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatalf("create event: %v", err)
		}
	}
	_ = s.CreateEvent(ctx, models.Event{ID: "z", Type: "user.follow", ActorID: "u2", Message: "m", CreatedAt: now})

	events, err := s.GetEventsForActor(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 2 || events[0].ID != "c" || events[1].ID != "b" {
		t.Fatalf("unexpected events: %+v", events)
	}

	n, err := s.PruneEvents(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("prune: n=%d err=%v", n, err)
	}
}

func TestConstraintErrorsByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "a", "alice")
	now := time.Now()
	seedPost(t, s, "p1", "a", "hi", now)

	_, err := s.db.ExecContext(ctx, `INSERT INTO follows (follower_id, followee_id, created_at) VALUES ('a', 'ghost', 0)`)
	if !isForeignKeyViolation(err) || isUniqueViolation(err) {
		t.Fatalf("dangling follow: got %v (code %d)", err, errorCode(err))
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO posts (id, user_id, created_at, updated_at) VALUES ('p1', 'a', 0, 0)`)
	if !isUniqueViolation(err) || isForeignKeyViolation(err) {
		t.Fatalf("duplicate primary key: got %v (code %d)", err, errorCode(err))
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO follows (follower_id, followee_id, created_at) VALUES ('a', 'a', 0)`)
	if err == nil || isUniqueViolation(err) || isForeignKeyViolation(err) {
		t.Fatalf("self follow must fail as a check violation only: %v", err)
	}

	if errorCode(errors.New("UNIQUE constraint failed: users.email")) != 0 {
		t.Fatal("plain error text must not be classified")
	}

	err = s.CreatePost(ctx, models.Post{ID: "p2", UserID: "ghost", CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post by unknown user: got %v, want ErrNotFound", err)
	}
	c := models.Comment{ID: "c1", UserID: "a", Text: "x", CreatedAt: now}
	if err := s.AddComment(ctx, "p1", c); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := s.AddComment(ctx, "p1", c); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate comment id: got %v, want ErrDuplicate", err)
	}
}
