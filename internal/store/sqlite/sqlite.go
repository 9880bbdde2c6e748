// Package sqlite implements the store contract on top of SQLite via sqlx.
//
// Posts keep their like set and comment sequence in child tables keyed by
// the post id, so every membership change is a single-row statement and
// deleting a post removes everything it owns.
package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/isdelr/opensocial-be/internal/store"
	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store is the SQLite-backed implementation of store.Store.
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated database.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func isUniqueViolation(err error) bool {
	code := errorCode(err)
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isForeignKeyViolation(err error) bool {
	return errorCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// errorCode returns the extended result code of a driver error, or 0.
func errorCode(err error) int {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

// setClause accumulates "col = ?" fragments for partial updates.
type setClause struct {
	cols []string
	args []any
}

func (c *setClause) add(col string, v *string) {
	if v == nil {
		return
	}
	c.cols = append(c.cols, col+" = ?")
	c.args = append(c.args, *v)
}

func (c *setClause) empty() bool { return len(c.cols) == 0 }

func (c *setClause) String() string { return strings.Join(c.cols, ", ") }
