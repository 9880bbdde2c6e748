package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
)

const postColumns = `id, user_id, text, image, video, created_at, updated_at`

type postRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Text      string `db:"text"`
	Image     string `db:"image"`
	Video     string `db:"video"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r postRow) model() models.Post {
	return models.Post{
		ID:        r.ID,
		UserID:    r.UserID,
		Text:      r.Text,
		Image:     r.Image,
		Video:     r.Video,
		Likes:     []string{},
		Comments:  []models.Comment{},
		CreatedAt: fromNanos(r.CreatedAt),
		UpdatedAt: fromNanos(r.UpdatedAt),
	}
}

type likeRow struct {
	PostID string `db:"post_id"`
	UserID string `db:"user_id"`
}

type commentRow struct {
	PostID    string `db:"post_id"`
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Text      string `db:"text"`
	CreatedAt int64  `db:"created_at"`
}

func (r commentRow) model() models.Comment {
	return models.Comment{ID: r.ID, UserID: r.UserID, Text: r.Text, CreatedAt: fromNanos(r.CreatedAt)}
}

// CreatePost inserts a post. Likes and comments always start empty.
func (s *Store) CreatePost(ctx context.Context, p models.Post) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Text, p.Image, p.Video, toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	switch {
	case isUniqueViolation(err):
		return store.ErrDuplicate
	case isForeignKeyViolation(err):
		return store.ErrNotFound
	}
	return err
}

// GetPost retrieves a post with its like set and comments in insertion order.
func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var row postRow
	err := s.db.GetContext(ctx, &row, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, store.ErrNotFound
	}
	if err != nil {
		return models.Post{}, err
	}

	p := row.model()
	if err := s.db.SelectContext(ctx, &p.Likes,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at, rowid`, id); err != nil {
		return models.Post{}, fmt.Errorf("load likes: %w", err)
	}
	var comments []commentRow
	if err := s.db.SelectContext(ctx, &comments,
		`SELECT post_id, id, user_id, text, created_at FROM post_comments WHERE post_id = ? ORDER BY rowid`, id); err != nil {
		return models.Post{}, fmt.Errorf("load comments: %w", err)
	}
	for _, c := range comments {
		p.Comments = append(p.Comments, c.model())
	}
	return p, nil
}

// ListPosts returns every post newest first. Likes and comments are loaded
// with one query each rather than per post.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, rowid DESC`); err != nil {
		return nil, err
	}

	posts := make([]models.Post, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		posts[i] = r.model()
		index[r.ID] = i
	}
	if len(posts) == 0 {
		return posts, nil
	}

	var likes []likeRow
	if err := s.db.SelectContext(ctx, &likes,
		`SELECT post_id, user_id FROM post_likes ORDER BY created_at, rowid`); err != nil {
		return nil, fmt.Errorf("load likes: %w", err)
	}
	for _, l := range likes {
		if i, ok := index[l.PostID]; ok {
			posts[i].Likes = append(posts[i].Likes, l.UserID)
		}
	}

	var comments []commentRow
	if err := s.db.SelectContext(ctx, &comments,
		`SELECT post_id, id, user_id, text, created_at FROM post_comments ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	for _, c := range comments {
		if i, ok := index[c.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, c.model())
		}
	}
	return posts, nil
}

// UpdatePost overwrites the non-nil content fields of upd.
func (s *Store) UpdatePost(ctx context.Context, id string, upd store.PostUpdate) error {
	var set setClause
	set.add("text", upd.Text)
	set.add("image", upd.Image)
	set.add("video", upd.Video)
	set.cols = append(set.cols, "updated_at = ?")
	set.args = append(set.args, toNanos(upd.UpdatedAt))

	res, err := s.db.ExecContext(ctx, `UPDATE posts SET `+set.String()+` WHERE id = ?`, append(set.args, id)...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeletePost removes a post together with its likes and comments.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_comments WHERE post_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// AddLike puts userID into the post's like set.
func (s *Store) AddLike(ctx context.Context, postID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_likes (post_id, user_id, created_at) VALUES (?, ?, ?)`,
		postID, userID, toNanos(time.Now()))
	if isForeignKeyViolation(err) {
		return store.ErrNotFound
	}
	return err
}

// RemoveLike takes userID out of the post's like set.
func (s *Store) RemoveLike(ctx context.Context, postID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	return err
}

// AddComment appends c to the post's comment sequence.
func (s *Store) AddComment(ctx context.Context, postID string, c models.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO post_comments (post_id, id, user_id, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		postID, c.ID, c.UserID, c.Text, toNanos(c.CreatedAt))
	switch {
	case isForeignKeyViolation(err):
		return store.ErrNotFound
	case isUniqueViolation(err):
		return store.ErrDuplicate
	}
	return err
}

// UpdateCommentText replaces the text of one comment.
func (s *Store) UpdateCommentText(ctx context.Context, postID, commentID, text string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE post_comments SET text = ? WHERE post_id = ? AND id = ?`, text, postID, commentID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
