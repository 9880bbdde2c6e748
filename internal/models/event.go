package models

import "time"

// Event represents an entry in the activity log.
type Event struct {
	ID        string    `json:"id" bson:"_id"`
	Type      string    `json:"type" bson:"type"` // e.g., "post.create", "user.follow"
	ActorID   string    `json:"actorId" bson:"actorId"`
	SubjectID string    `json:"subjectId,omitempty" bson:"subjectId,omitempty"` // post or user acted upon
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
