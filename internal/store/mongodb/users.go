package mongodb

import (
	"context"
	"fmt"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateUser inserts u. The unique indexes on username and email reject duplicates.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	u.Followers = orEmpty(u.Followers)
	u.Following = orEmpty(u.Following)
	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return models.User{}, notFound(err)
	}
	u.Followers = orEmpty(u.Followers)
	u.Following = orEmpty(u.Following)
	return u, nil
}

// GetUserSummaries resolves a batch of ids with one query.
func (s *Store) GetUserSummaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "username": 1, "profileImg": 1})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var summaries []models.UserSummary
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, err
	}
	for _, sum := range summaries {
		out[sum.ID] = sum
	}
	return out, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) error {
	set := bson.M{}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfileImg != nil {
		set["profileImg"] = *upd.ProfileImg
	}
	if upd.CoverImg != nil {
		set["coverImg"] = *upd.CoverImg
	}
	if len(set) == 0 {
		_, err := s.GetUserByID(ctx, id)
		return err
	}
	return requireMatch(s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}))
}

// Follow adds the edge to both documents inside one transaction.
func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.users.UpdateOne(sc,
			bson.M{"_id": followeeID, "followers": bson.M{"$ne": followerID}},
			bson.M{"$addToSet": bson.M{"followers": followerID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			if _, err := s.findUser(sc, bson.M{"_id": followeeID}); err != nil {
				return err
			}
			return store.ErrAlreadyFollowing
		}
		return requireMatch(s.users.UpdateOne(sc,
			bson.M{"_id": followerID},
			bson.M{"$addToSet": bson.M{"following": followeeID}}))
	})
}

// Unfollow removes the edge from both documents inside one transaction.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.users.UpdateOne(sc,
			bson.M{"_id": followerID, "following": followeeID},
			bson.M{"$pull": bson.M{"following": followeeID}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return store.ErrNotFollowing
		}
		_, err = s.users.UpdateOne(sc,
			bson.M{"_id": followeeID},
			bson.M{"$pull": bson.M{"followers": followerID}})
		return err
	})
}

func (s *Store) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
