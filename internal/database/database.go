package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new sqlite connection pool with foreign keys enforced.
func New(ctx context.Context, dataSourceName string) (*sqlx.DB, error) {
	dsn := dataSourceName + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// Timestamps are stored as unix nanoseconds so ordering is exact.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		profile_img TEXT NOT NULL DEFAULT '',
		cover_img TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	-- One row is one edge: it is both an entry in the follower's "following"
	-- and in the followee's "followers".
	CREATE TABLE IF NOT EXISTS follows (
		follower_id TEXT NOT NULL REFERENCES users(id),
		followee_id TEXT NOT NULL REFERENCES users(id),
		created_at INTEGER NOT NULL,
		PRIMARY KEY (follower_id, followee_id),
		CHECK (follower_id <> followee_id)
	);
	CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		text TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		video TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);

	CREATE TABLE IF NOT EXISTS post_likes (
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (post_id, user_id)
	);

	-- Comments belong to their post: ids are post-local and rows go away with the post.
	CREATE TABLE IF NOT EXISTS post_comments (
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (post_id, id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor_id, created_at);
	`
	_, err := db.ExecContext(ctx, sqlStmt)
	return err
}
