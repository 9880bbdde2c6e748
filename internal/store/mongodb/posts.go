package mongodb

import (
	"context"

	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func normalizePost(p *models.Post) {
	p.Likes = orEmpty(p.Likes)
	p.Comments = orEmpty(p.Comments)
}

func (s *Store) CreatePost(ctx context.Context, p models.Post) error {
	normalizePost(&p)
	_, err := s.posts.InsertOne(ctx, p)
	return err
}

func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Post{}, notFound(err)
	}
	normalizePost(&p)
	return p, nil
}

// ListPosts returns every post sorted by creation time, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	cur, err := s.posts.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	for i := range posts {
		normalizePost(&posts[i])
	}
	return posts, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, upd store.PostUpdate) error {
	set := bson.M{"updatedAt": upd.UpdatedAt}
	if upd.Text != nil {
		set["text"] = *upd.Text
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Video != nil {
		set["video"] = *upd.Video
	}
	return requireMatch(s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}))
}

// DeletePost removes the post document; likes and comments go with it.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AddLike(ctx context.Context, postID, userID string) error {
	return requireMatch(s.posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$addToSet": bson.M{"likes": userID}}))
}

func (s *Store) RemoveLike(ctx context.Context, postID, userID string) error {
	return requireMatch(s.posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$pull": bson.M{"likes": userID}}))
}

func (s *Store) AddComment(ctx context.Context, postID string, c models.Comment) error {
	return requireMatch(s.posts.UpdateOne(ctx, bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": c}}))
}

// UpdateCommentText sets the text of the matched embedded comment.
func (s *Store) UpdateCommentText(ctx context.Context, postID, commentID, text string) error {
	return requireMatch(s.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$set": bson.M{"comments.$.text": text}}))
}
