package models

import "time"

// Post is a short-form post. Comments are owned by the post and share its lifetime.
type Post struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
	Image     string    `json:"image" bson:"image"`
	Video     string    `json:"video" bson:"video"`
	Likes     []string  `json:"likes" bson:"likes"`
	Comments  []Comment `json:"comments" bson:"comments"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// LikedBy reports whether userID is in the post's like set.
func (p Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Comment finds a comment by its post-local identifier.
func (p Post) Comment(id string) (Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

// Comment is a reply embedded in a Post. Its ID is unique within the post.
type Comment struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"user" bson:"user"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// PostView is a post re-hydrated with its owner's and commenters' public fields.
type PostView struct {
	ID        string        `json:"_id"`
	User      UserSummary   `json:"user"`
	Text      string        `json:"text,omitempty"`
	Image     string        `json:"image,omitempty"`
	Video     string        `json:"video,omitempty"`
	Likes     []string      `json:"likes"`
	Comments  []CommentView `json:"comments"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// CommentView is a comment re-hydrated with its author's public fields.
type CommentView struct {
	ID        string      `json:"_id"`
	Text      string      `json:"text"`
	User      UserSummary `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
}
