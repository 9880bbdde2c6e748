package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"` // Never expose this to the client
	Bio          string    `json:"bio" bson:"bio"`
	ProfileImg   string    `json:"profileImg" bson:"profileImg"`
	CoverImg     string    `json:"coverImg" bson:"coverImg"`
	Followers    []string  `json:"followers" bson:"followers"`
	Following    []string  `json:"following" bson:"following"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Public returns a copy of u that is safe to send to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
	return u
}

// Summary projects the fields embedded into posts and comments.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, ProfileImg: u.ProfileImg}
}

// UserSummary is the public projection of a user referenced by another entity.
type UserSummary struct {
	ID         string `json:"_id" bson:"_id"`
	Username   string `json:"username" bson:"username"`
	ProfileImg string `json:"profileImg" bson:"profileImg"`
}
