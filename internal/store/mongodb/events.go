package mongodb

import (
	"context"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateEvent(ctx context.Context, e models.Event) error {
	_, err := s.events.InsertOne(ctx, e)
	return err
}

func (s *Store) GetEventsForActor(ctx context.Context, actorID string, limit int) ([]models.Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.events.Find(ctx, bson.M{"actorId": actorID}, opts)
	if err != nil {
		return nil, err
	}
	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.events.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
