// Package mongodb implements the store contract on MongoDB. Users carry
// their followers and following arrays, posts embed their like set and
// comments, so every aggregate is a single document.
package mongodb

import (
	"context"
	"errors"

	"github.com/isdelr/opensocial-be/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	usersCollection  = "users"
	postsCollection  = "posts"
	eventsCollection = "events"
)

// Store is the MongoDB-backed implementation of store.Store.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
	events *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New wraps a connected client. Follow and Unfollow need a deployment that
// supports multi-document transactions (a replica set).
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client: client,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
		events: db.Collection(eventsCollection),
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func requireMatch(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
