package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/opensocial-be/internal/cache"
	"github.com/isdelr/opensocial-be/internal/store"
)

// SocialServiceProvider defines the interface for follow graph operations.
type SocialServiceProvider interface {
	Follow(ctx context.Context, actorID, targetID string) error
	Unfollow(ctx context.Context, actorID, targetID string) error
}

// SocialService maintains the follow graph. Both sides of an edge are
// written by the store in one step.
type SocialService struct {
	store  store.UserStore
	cache  cache.ProfileCache
	events EventServiceProvider
}

// NewSocialService creates a new SocialService. A nil profileCache disables caching.
func NewSocialService(s store.UserStore, profileCache cache.ProfileCache, events EventServiceProvider) *SocialService {
	if profileCache == nil {
		profileCache = cache.Noop{}
	}
	return &SocialService{store: s, cache: profileCache, events: events}
}

// Follow makes actorID a follower of targetID.
func (s *SocialService) Follow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return validation("You cannot follow yourself")
	}
	actor, target, err := s.pair(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	err = s.store.Follow(ctx, actorID, targetID)
	switch {
	case errors.Is(err, store.ErrAlreadyFollowing):
		return conflict("You are already following this user")
	case errors.Is(err, store.ErrNotFound):
		return notFound("User not found")
	case err != nil:
		return fmt.Errorf("follow: %w", err)
	}

	s.cache.Invalidate(ctx, actor, target)
	s.events.Record(ctx, EventUserFollow, actorID, targetID, fmt.Sprintf("followed %s", target))
	return nil
}

// Unfollow removes the edge actorID -> targetID.
func (s *SocialService) Unfollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return validation("You cannot unfollow yourself")
	}
	actor, target, err := s.pair(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	err = s.store.Unfollow(ctx, actorID, targetID)
	switch {
	case errors.Is(err, store.ErrNotFollowing):
		return conflict("You are not following this user")
	case err != nil:
		return fmt.Errorf("unfollow: %w", err)
	}

	s.cache.Invalidate(ctx, actor, target)
	s.events.Record(ctx, EventUserUnfollow, actorID, targetID, fmt.Sprintf("unfollowed %s", target))
	return nil
}

// pair resolves both usernames, failing with NotFound when either is gone.
func (s *SocialService) pair(ctx context.Context, actorID, targetID string) (string, string, error) {
	names := make([]string, 2)
	for i, id := range []string{actorID, targetID} {
		u, err := s.store.GetUserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return "", "", notFound("User not found")
		}
		if err != nil {
			return "", "", err
		}
		names[i] = u.Username
	}
	return names[0], names[1], nil
}
