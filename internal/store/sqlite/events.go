package sqlite

import (
	"context"
	"time"

	"github.com/isdelr/opensocial-be/internal/models"
)

type eventRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	ActorID   string `db:"actor_id"`
	SubjectID string `db:"subject_id"`
	Message   string `db:"message"`
	CreatedAt int64  `db:"created_at"`
}

// CreateEvent logs a new event to the database.
func (s *Store) CreateEvent(ctx context.Context, e models.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, actor_id, subject_id, message, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, e.Type, e.ActorID, e.SubjectID, e.Message, toNanos(e.CreatedAt))
	return err
}

// GetEventsForActor retrieves the most recent events caused by actorID.
func (s *Store) GetEventsForActor(ctx context.Context, actorID string, limit int) ([]models.Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, type, actor_id, subject_id, message, created_at FROM events WHERE actor_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		actorID, limit)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, models.Event{
			ID:        r.ID,
			Type:      r.Type,
			ActorID:   r.ActorID,
			SubjectID: r.SubjectID,
			Message:   r.Message,
			CreatedAt: fromNanos(r.CreatedAt),
		})
	}
	return events, nil
}

// PruneEvents deletes events older than cutoff.
func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", toNanos(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
