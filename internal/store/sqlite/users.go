package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, username, email, password_hash, bio, profile_img, cover_img, created_at`

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Bio          string `db:"bio"`
	ProfileImg   string `db:"profile_img"`
	CoverImg     string `db:"cover_img"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Bio:          r.Bio,
		ProfileImg:   r.ProfileImg,
		CoverImg:     r.CoverImg,
		CreatedAt:    fromNanos(r.CreatedAt),
	}
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Bio, u.ProfileImg, u.CoverImg, toNanos(u.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// GetUserByID retrieves a single user, including the password digest and follow edges.
func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a single user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByUsername retrieves a single user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *Store) getUser(ctx context.Context, column, value string) (models.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	u := row.model()
	u.Followers = []string{}
	u.Following = []string{}
	if err := s.db.SelectContext(ctx, &u.Followers,
		`SELECT follower_id FROM follows WHERE followee_id = ? ORDER BY created_at`, u.ID); err != nil {
		return models.User{}, fmt.Errorf("load followers: %w", err)
	}
	if err := s.db.SelectContext(ctx, &u.Following,
		`SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY created_at`, u.ID); err != nil {
		return models.User{}, fmt.Errorf("load following: %w", err)
	}
	return u, nil
}

// GetUserSummaries resolves a batch of user ids to their public projection.
func (s *Store) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, profile_img FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.model().Summary()
	}
	return out, nil
}

// UpdateProfile overwrites the non-nil fields of upd.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) error {
	var set setClause
	set.add("bio", upd.Bio)
	set.add("profile_img", upd.ProfileImg)
	set.add("cover_img", upd.CoverImg)
	if set.empty() {
		_, err := s.GetUserByID(ctx, id)
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+set.String()+` WHERE id = ?`, append(set.args, id)...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Follow inserts the edge row. The primary key makes a second follow fail.
func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
		followerID, followeeID, toNanos(time.Now()))
	switch {
	case isUniqueViolation(err):
		return store.ErrAlreadyFollowing
	case isForeignKeyViolation(err):
		return store.ErrNotFound
	}
	return err
}

// Unfollow removes the edge row.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`, followerID, followeeID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFollowing
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
