package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/opensocial-be/internal/models"
	"github.com/isdelr/opensocial-be/internal/store"
	"github.com/rs/zerolog/log"
)

// Activity event types.
const (
	EventUserRegister  = "user.register"
	EventUserUpdate    = "user.update"
	EventUserFollow    = "user.follow"
	EventUserUnfollow  = "user.unfollow"
	EventPostCreate    = "post.create"
	EventPostEdit      = "post.edit"
	EventPostDelete    = "post.delete"
	EventCommentCreate = "comment.create"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	Record(ctx context.Context, eventType, actorID, subjectID, message string)
	RecentForActor(ctx context.Context, actorID string, limit int) ([]models.Event, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// EventService keeps the activity log.
type EventService struct {
	store store.EventStore
}

// NewEventService creates a new EventService.
func NewEventService(s store.EventStore) *EventService {
	return &EventService{store: s}
}

// Record logs a new event. A failed write is logged and never surfaces to
// the caller: the operation it describes has already happened.
func (s *EventService) Record(ctx context.Context, eventType, actorID, subjectID, message string) {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		ActorID:   actorID,
		SubjectID: subjectID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Error().Err(err).Str("type", eventType).Str("actor_id", actorID).Msg("Failed to record event")
	}
}

// RecentForActor retrieves the most recent events caused by actorID.
func (s *EventService) RecentForActor(ctx context.Context, actorID string, limit int) ([]models.Event, error) {
	events, err := s.store.GetEventsForActor(ctx, actorID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Prune deletes events older than olderThan.
func (s *EventService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.PruneEvents(ctx, time.Now().Add(-olderThan))
}
