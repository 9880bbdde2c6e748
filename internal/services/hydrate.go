package services

import (
	"context"
	"fmt"

	"github.com/isdelr/opensocial-be/internal/models"
)

// hydrate replaces stored user ids with the users' current public fields.
// All authors are resolved with one lookup; an author that no longer
// resolves is rendered with its id only.
func (s *PostService) hydrate(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.UserID)
		for _, c := range p.Comments {
			add(c.UserID)
		}
	}

	users, err := s.users.GetUserSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	summary := func(id string) models.UserSummary {
		if u, ok := users[id]; ok {
			return u
		}
		return models.UserSummary{ID: id}
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		view := models.PostView{
			ID:        p.ID,
			User:      summary(p.UserID),
			Text:      p.Text,
			Image:     p.Image,
			Video:     p.Video,
			Likes:     p.Likes,
			Comments:  make([]models.CommentView, 0, len(p.Comments)),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if view.Likes == nil {
			view.Likes = []string{}
		}
		for _, c := range p.Comments {
			view.Comments = append(view.Comments, models.CommentView{
				ID:        c.ID,
				Text:      c.Text,
				User:      summary(c.UserID),
				CreatedAt: c.CreatedAt,
			})
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *PostService) hydrateOne(ctx context.Context, post models.Post) (models.PostView, error) {
	views, err := s.hydrate(ctx, []models.Post{post})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}
